package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/model"
	"github.com/zijiegan/library-catalog/pkg/kafka"
)

// PatronStatus aggregates the patron's active loans, sums their late
// fees and stamps the report itself into the history trail.
func (s *Service) PatronStatus(ctx context.Context, patronID string) (model.PatronStatusReport, error) {
	if err := validatePatronID(patronID); err != nil {
		return model.PatronStatusReport{}, err
	}

	loans, err := s.store.PatronBorrowedBooks(ctx, patronID)
	if err != nil {
		return model.PatronStatusReport{}, errors.Wrap(errs.ErrDatabase, err.Error())
	}

	items := make([]model.BorrowedItem, len(loans))
	fees := make([]float64, len(loans))
	gg, gctx := errgroup.WithContext(ctx)
	for i, loan := range loans {
		i, loan := i, loan
		items[i] = model.BorrowedItem{
			Title:   loan.Title,
			DueDate: loan.DueDate.Format(time.DateOnly),
		}
		gg.Go(func() error {
			res, err := s.CalculateLateFee(gctx, patronID, loan.BookID)
			if err != nil {
				return err
			}
			fees[i] = res.FeeAmount
			return nil
		})
	}
	if err := gg.Wait(); err != nil {
		return model.PatronStatusReport{}, err
	}

	total := 0.0
	for _, f := range fees {
		total += f
	}

	now := s.now()
	s.enqueueAudit(kafka.AuditEvent{PatronID: patronID, Action: "report_generated"})

	return model.PatronStatusReport{
		CurrentBorrowed: items,
		BorrowedCount:   len(items),
		TotalLateFees:   fmt.Sprintf("%.2f", total),
		History: []model.HistoryEntry{
			{Timestamp: now.Format(time.RFC3339), Action: "report_generated"},
		},
		Date: now.Format(time.DateOnly),
	}, nil
}
