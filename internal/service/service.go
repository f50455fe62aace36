package service

import (
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/zijiegan/library-catalog/internal/errs"
	"github.com/zijiegan/library-catalog/internal/repository"
	"github.com/zijiegan/library-catalog/pkg/circuit_breaker"
	"github.com/zijiegan/library-catalog/pkg/kafka"
	"github.com/zijiegan/library-catalog/pkg/payment"
)

const (
	loanPeriodDays = 14
	// a patron may hold another loan unless the active count already
	// exceeds this bound; 5 active loans still allow a 6th borrow,
	// matching the shipped policy
	borrowLimit = 5
)

var patronIDRe = regexp.MustCompile(`^\d{6}$`)

type Service struct {
	log      *zap.Logger
	store    repository.Storage
	fallback *repository.MemoryStorage
	gateway  payment.Gateway
	cb       circuit_breaker.CircuitBreaker
	audit    kafka.Enqueuer
	noRecord NoRecordPolicy

	refundCeiling float64
	now           func() time.Time
}

type Option func(*Service)

// WithFallback enables the ephemeral degraded-mode catalog.
func WithFallback(m *repository.MemoryStorage) Option {
	return func(s *Service) { s.fallback = m }
}

func WithAudit(e kafka.Enqueuer) Option {
	return func(s *Service) { s.audit = e }
}

func WithNoRecordPolicy(p NoRecordPolicy) Option {
	return func(s *Service) { s.noRecord = p }
}

func WithRefundCeiling(ceiling float64) Option {
	return func(s *Service) { s.refundCeiling = ceiling }
}

func WithCircuitBreaker(cb circuit_breaker.CircuitBreaker) Option {
	return func(s *Service) { s.cb = cb }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.Storage, gateway payment.Gateway, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:           log,
		store:         store,
		gateway:       gateway,
		audit:         kafka.NopEnqueuer{},
		noRecord:      StrictNoRecord{},
		cb:            circuit_breaker.New(10, 5*time.Second, 0.5, 3),
		refundCeiling: maxLateFee,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validatePatronID(patronID string) error {
	if !patronIDRe.MatchString(patronID) {
		return errs.Validationf("invalid patron ID: must be exactly 6 digits")
	}
	return nil
}

func (s *Service) enqueueAudit(ev kafka.AuditEvent) {
	ev.Timestamp = s.now()
	if err := s.audit.Enqueue(kafka.AuditTopic, ev); err != nil {
		s.log.Warn("audit enqueue", zap.String("action", ev.Action), zap.Error(err))
	}
}
