package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/model"
	"github.com/zijiegan/library-catalog/pkg/kafka"
	"github.com/zijiegan/library-catalog/pkg/payment"
)

// PayLateFee charges the patron's late fee for a book through the
// payment gateway. A zero fee never reaches the gateway. A
// gateway-reported decline and a transport fault are reported as
// distinct errors.
func (s *Service) PayLateFee(ctx context.Context, patronID string, bookID int) (model.PaymentResult, error) {
	if err := validatePatronID(patronID); err != nil {
		return model.PaymentResult{}, err
	}

	book, err := s.store.GetBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.PaymentResult{}, err
		}
		return model.PaymentResult{}, errors.Wrap(errs.ErrDatabase, err.Error())
	}

	fee, err := s.CalculateLateFee(ctx, patronID, bookID)
	if err != nil {
		return model.PaymentResult{}, err
	}
	if fee.FeeAmount == 0 {
		return model.PaymentResult{Message: "no late fees due"}, nil
	}

	var p payment.Payment
	if err := s.cb.Call(func() error {
		var callErr error
		p, callErr = s.gateway.ProcessPayment(ctx, patronID, fee.FeeAmount,
			fmt.Sprintf("late fees for %q", book.Title))
		return callErr
	}); err != nil {
		return model.PaymentResult{}, errors.Wrap(errs.ErrPaymentProcessing, err.Error())
	}
	if !p.OK {
		return model.PaymentResult{}, errors.Wrap(errs.ErrPaymentDeclined, p.Message)
	}

	s.enqueueAudit(kafka.AuditEvent{PatronID: patronID, BookID: bookID, Action: "late_fee_paid", Detail: p.TransactionID})

	return model.PaymentResult{
		Message:       p.Message,
		TransactionID: p.TransactionID,
		Amount:        fee.FeeAmount,
	}, nil
}

// RefundLateFee validates the transaction id and amount locally
// before delegating to the gateway.
func (s *Service) RefundLateFee(ctx context.Context, transactionID string, amount float64) (model.RefundResult, error) {
	if !strings.HasPrefix(transactionID, "txn_") {
		return model.RefundResult{}, errs.Validationf("invalid transaction ID")
	}
	if amount <= 0 {
		return model.RefundResult{}, errs.Validationf("refund amount must be greater than 0")
	}
	if amount > s.refundCeiling {
		return model.RefundResult{}, errs.Validationf("refund amount exceeds the maximum late fee of %.2f", s.refundCeiling)
	}

	var r payment.Refund
	if err := s.cb.Call(func() error {
		var callErr error
		r, callErr = s.gateway.RefundPayment(ctx, transactionID, amount)
		return callErr
	}); err != nil {
		return model.RefundResult{}, errors.Wrap(errs.ErrPaymentProcessing, err.Error())
	}
	if !r.OK {
		return model.RefundResult{}, errors.Wrap(errs.ErrPaymentDeclined, r.Message)
	}

	s.enqueueAudit(kafka.AuditEvent{Action: "late_fee_refunded", Detail: transactionID})

	return model.RefundResult{Message: r.Message}, nil
}
