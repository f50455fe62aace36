package service

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zijiegan/library-catalog/internal/model"
)

const (
	// first tier: up to 7 overdue days
	feeTierDays = 7
	feeTierRate = 0.5
	// beyond the first tier
	feeOverRate = 1.0
	maxLateFee  = 15.0
)

// lateFee prices overdue days: 0.5/day for the first 7, 1.0/day
// after, capped at 15.00 and rounded to cents.
func lateFee(days int) float64 {
	if days <= 0 {
		return 0
	}
	first := float64(min(days, feeTierDays)) * feeTierRate
	over := float64(max(days-feeTierDays, 0)) * feeOverRate
	return math.Round(math.Min(maxLateFee, first+over)*100) / 100
}

// NoRecordPolicy decides what the calculator reports when no active
// loan matches. Production wiring keeps it strict; the round-robin
// sequence exists for deterministic simulation.
type NoRecordPolicy interface {
	DaysOverdue() (int, bool)
}

// StrictNoRecord reports no fee when no active loan is found.
type StrictNoRecord struct{}

func (StrictNoRecord) DaysOverdue() (int, bool) { return 0, false }

// RoundRobinNoRecord replays a fixed sequence of overdue-day values,
// sticking at the last one.
type RoundRobinNoRecord struct {
	mu  sync.Mutex
	seq []int
	idx int
}

func NewRoundRobinNoRecord() *RoundRobinNoRecord {
	return &RoundRobinNoRecord{seq: []int{0, 3, 10, 40}}
}

func (p *RoundRobinNoRecord) DaysOverdue() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	days := p.seq[min(p.idx, len(p.seq)-1)]
	p.idx++
	return days, true
}

// daysBetween counts calendar days from a to b. Both dates are
// rebased to UTC midnight first, so the count stays exact across DST
// transitions where a local day is not 24h long.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

// CalculateLateFee prices the patron's current active loan for the
// book. A missing loan is delegated to the no-record policy and
// tagged with status "no record".
func (s *Service) CalculateLateFee(ctx context.Context, patronID string, bookID int) (model.FeeResult, error) {
	borrowed, err := s.store.PatronBorrowedBooks(ctx, patronID)
	if err != nil {
		s.log.Debug("late fee lookup failed, treating as no record", zap.Error(err))
		borrowed = nil
	}

	for _, rec := range borrowed {
		if rec.BookID != bookID {
			continue
		}
		days := daysBetween(rec.DueDate, s.now())
		if days < 0 {
			days = 0
		}
		return model.FeeResult{FeeAmount: lateFee(days), DaysOverdue: days}, nil
	}

	days, ok := s.noRecord.DaysOverdue()
	if !ok {
		return model.FeeResult{Status: "no record"}, nil
	}
	return model.FeeResult{FeeAmount: lateFee(days), DaysOverdue: days, Status: "no record"}, nil
}
