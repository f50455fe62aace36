package service_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/model"
	"github.com/zijiegan/library-catalog/internal/service"
	"github.com/zijiegan/library-catalog/pkg/payment"
)

func TestService_PayLateFee(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	book := model.Book{ID: 1, Title: "The Great Gatsby", AvailableCopies: 1, TotalCopies: 3}

	overdueLoan := func(days int) []model.BorrowedBook {
		return []model.BorrowedBook{{BookID: 1, Title: book.Title, DueDate: testClock().AddDate(0, 0, -days)}}
	}

	t.Run("invalid patron id", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		_, err := svc.PayLateFee(ctx, "abc", 1)
		require.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("zero fee never calls the gateway", func(t *testing.T) {
		t.Parallel()
		svc, store, _ := newTestService(t, service.WithClock(testClock))
		store.EXPECT().GetBookByID(gomock.Any(), 1).Return(book, nil)
		store.EXPECT().PatronBorrowedBooks(gomock.Any(), "123456").Return(overdueLoan(0), nil)

		res, err := svc.PayLateFee(ctx, "123456", 1)
		require.NoError(t, err)
		require.Contains(t, res.Message, "no late fees")
		require.Empty(t, res.TransactionID)
	})

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, store, gw := newTestService(t, service.WithClock(testClock))
		store.EXPECT().GetBookByID(gomock.Any(), 1).Return(book, nil)
		store.EXPECT().PatronBorrowedBooks(gomock.Any(), "123456").Return(overdueLoan(3), nil)
		gw.EXPECT().
			ProcessPayment(gomock.Any(), "123456", 1.50, `late fees for "The Great Gatsby"`).
			Return(payment.Payment{OK: true, TransactionID: "txn_123456_1", Amount: 1.50, Message: "payment of $1.50 processed successfully"}, nil)

		res, err := svc.PayLateFee(ctx, "123456", 1)
		require.NoError(t, err)
		require.Equal(t, "txn_123456_1", res.TransactionID)
		require.InDelta(t, 1.50, res.Amount, 1e-9)
	})

	t.Run("gateway decline is not a processing error", func(t *testing.T) {
		t.Parallel()
		svc, store, gw := newTestService(t, service.WithClock(testClock))
		store.EXPECT().GetBookByID(gomock.Any(), 1).Return(book, nil)
		store.EXPECT().PatronBorrowedBooks(gomock.Any(), "123456").Return(overdueLoan(3), nil)
		gw.EXPECT().
			ProcessPayment(gomock.Any(), "123456", 1.50, gomock.Any()).
			Return(payment.Payment{Message: "payment declined: amount exceeds limit"}, nil)

		_, err := svc.PayLateFee(ctx, "123456", 1)
		require.ErrorIs(t, err, errs.ErrPaymentDeclined)
		require.NotErrorIs(t, err, errs.ErrPaymentProcessing)
	})

	t.Run("gateway fault is a processing error", func(t *testing.T) {
		t.Parallel()
		svc, store, gw := newTestService(t, service.WithClock(testClock))
		store.EXPECT().GetBookByID(gomock.Any(), 1).Return(book, nil)
		store.EXPECT().PatronBorrowedBooks(gomock.Any(), "123456").Return(overdueLoan(3), nil)
		gw.EXPECT().
			ProcessPayment(gomock.Any(), "123456", 1.50, gomock.Any()).
			Return(payment.Payment{}, errors.New("connection reset"))

		_, err := svc.PayLateFee(ctx, "123456", 1)
		require.ErrorIs(t, err, errs.ErrPaymentProcessing)
		require.NotErrorIs(t, err, errs.ErrPaymentDeclined)
	})

	t.Run("book not found", func(t *testing.T) {
		t.Parallel()
		svc, store, _ := newTestService(t)
		store.EXPECT().GetBookByID(gomock.Any(), 9).Return(model.Book{}, errs.ErrNotFound)

		_, err := svc.PayLateFee(ctx, "123456", 9)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestService_RefundLateFee(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, _, gw := newTestService(t)
		gw.EXPECT().
			RefundPayment(gomock.Any(), "txn_123456_1", 5.0).
			Return(payment.Refund{OK: true, Message: "refund of $5.00 processed successfully"}, nil)

		res, err := svc.RefundLateFee(ctx, "txn_123456_1", 5.0)
		require.NoError(t, err)
		require.Contains(t, res.Message, "refund")
	})

	t.Run("malformed transaction id", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		_, err := svc.RefundLateFee(ctx, "bogus", 5.0)
		require.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("amount above ceiling", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		_, err := svc.RefundLateFee(ctx, "txn_123456_1", 100.0)
		require.ErrorIs(t, err, errs.ErrValidation)
		require.Contains(t, err.Error(), "maximum late fee")
	})

	t.Run("non-positive amount", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(t)
		_, err := svc.RefundLateFee(ctx, "txn_123456_1", 0)
		require.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("gateway refuses", func(t *testing.T) {
		t.Parallel()
		svc, _, gw := newTestService(t)
		gw.EXPECT().
			RefundPayment(gomock.Any(), "txn_123456_1", 5.0).
			Return(payment.Refund{Message: "invalid transaction ID"}, nil)

		_, err := svc.RefundLateFee(ctx, "txn_123456_1", 5.0)
		require.ErrorIs(t, err, errs.ErrPaymentDeclined)
	})

	t.Run("gateway fault", func(t *testing.T) {
		t.Parallel()
		svc, _, gw := newTestService(t)
		gw.EXPECT().
			RefundPayment(gomock.Any(), "txn_123456_1", 5.0).
			Return(payment.Refund{}, errors.New("timeout"))

		_, err := svc.RefundLateFee(ctx, "txn_123456_1", 5.0)
		require.ErrorIs(t, err, errs.ErrPaymentProcessing)
	})
}
