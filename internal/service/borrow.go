package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/model"
	"github.com/zijiegan/library-catalog/pkg/kafka"
)

// Borrow moves a (patron, book) pair from Available to Borrowed.
// Preconditions are checked in order and the first failure wins.
func (s *Service) Borrow(ctx context.Context, patronID string, bookID int) (model.BorrowResult, error) {
	if err := validatePatronID(patronID); err != nil {
		return model.BorrowResult{}, err
	}

	book, err := s.store.GetBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.BorrowResult{}, err
		}
		return model.BorrowResult{}, errors.Wrap(errs.ErrDatabase, err.Error())
	}
	if book.AvailableCopies <= 0 {
		return model.BorrowResult{}, errs.ErrNotAvailable
	}

	count, err := s.store.PatronBorrowCount(ctx, patronID)
	if err != nil {
		return model.BorrowResult{}, errors.Wrap(errs.ErrDatabase, err.Error())
	}
	if count > borrowLimit {
		return model.BorrowResult{}, errs.ErrBorrowLimit
	}

	now := s.now()
	rec := model.BorrowRecord{
		RecordUID:  uuid.New().String(),
		PatronID:   patronID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, loanPeriodDays),
	}
	inserted, err := s.store.InsertBorrowRecord(ctx, rec)
	if err != nil {
		return model.BorrowResult{}, errors.Wrap(errs.ErrDatabase, "creating borrow record")
	}

	if err := s.store.UpdateBookAvailability(ctx, bookID, -1); err != nil {
		// the borrow record stays in place, which leaves availability
		// overstated until reconciled; see DESIGN.md
		s.log.Warn("availability decrement failed after borrow insert",
			zap.String("recordUid", inserted.RecordUID), zap.Int("bookId", bookID), zap.Error(err))
		return model.BorrowResult{}, errors.Wrap(errs.ErrDatabase, "updating book availability")
	}

	s.enqueueAudit(kafka.AuditEvent{PatronID: patronID, BookID: bookID, Action: "book_borrowed", Detail: inserted.RecordUID})

	return model.BorrowResult{
		Message:   fmt.Sprintf("Successfully borrowed %q. Due date: %s.", book.Title, inserted.DueDate.Format(time.DateOnly)),
		RecordUID: inserted.RecordUID,
		DueDate:   inserted.DueDate,
	}, nil
}

// Return closes the patron's open borrow record for the book and
// frees the copy.
func (s *Service) Return(ctx context.Context, patronID string, bookID int) (model.ReturnResult, error) {
	if err := validatePatronID(patronID); err != nil {
		return model.ReturnResult{}, err
	}

	book, err := s.store.GetBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.ReturnResult{}, err
		}
		return model.ReturnResult{}, errors.Wrap(errs.ErrDatabase, err.Error())
	}

	if err := s.store.CloseBorrowRecord(ctx, patronID, bookID, s.now()); err != nil {
		if errors.Is(err, errs.ErrNoActiveLoan) {
			return model.ReturnResult{}, err
		}
		return model.ReturnResult{}, errors.Wrap(errs.ErrDatabase, err.Error())
	}

	if err := s.store.UpdateBookAvailability(ctx, bookID, +1); err != nil {
		return model.ReturnResult{}, errors.Wrap(errs.ErrDatabase, "updating book availability")
	}

	s.enqueueAudit(kafka.AuditEvent{PatronID: patronID, BookID: bookID, Action: "book_returned"})

	return model.ReturnResult{
		Message: fmt.Sprintf("Successfully returned %q.", book.Title),
	}, nil
}
