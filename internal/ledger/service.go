// Package ledger implements the contribution ledger: adding contributions to a
// report, splitting a contribution between reports under the retention rule, and
// deriving each report's bounty from its active contributions.
//
// Every mutation runs in a single storage transaction that also recomputes the
// affected report totals, so a report's bounty never reflects a partially
// committed contribution set.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bountyledger/internal/domain"
	"bountyledger/internal/observability"
)

// Notifier receives post-commit ledger events. Failures are logged and never
// propagate to the ledger caller.
type Notifier interface {
	BountyContributed(ctx context.Context, report domain.Report, contribution domain.Contribution) error
}

// Service coordinates ledger mutations over a LedgerStore.
type Service struct {
	store         domain.LedgerStore
	notifier      Notifier
	logger        zerolog.Logger
	metrics       *observability.LedgerMetrics
	now           func() time.Time
	newID         func() string
	notifyTimeout time.Duration

	notifications sync.WaitGroup
}

// Option customises the service instance.
type Option func(*Service)

// WithNotifier supplies the dispatcher for contribution notices.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *observability.LedgerMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock sets the function used to stamp new contributions.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.now = clock }
}

// WithIDGenerator sets the function used to mint contribution ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithNotifyTimeout bounds each asynchronous notification dispatch.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.notifyTimeout = d }
}

// NewService constructs a ledger service backed by store.
func NewService(store domain.LedgerStore, opts ...Option) *Service {
	svc := &Service{
		store:         store,
		logger:        zerolog.Nop(),
		metrics:       observability.Ledger(),
		now:           time.Now,
		newID:         uuid.NewString,
		notifyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Wait blocks until in-flight notifications have finished.
func (s *Service) Wait() {
	s.notifications.Wait()
}

func (s *Service) record(operation string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound), domain.IsRuleViolation(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	s.metrics.RecordOperation(operation, outcome, s.now().Sub(start))
}

// storageErr marks errors that did not originate from a ledger rule as storage failures.
func storageErr(err error) error {
	if err == nil ||
		errors.Is(err, domain.ErrStorage) ||
		errors.Is(err, domain.ErrNotFound) ||
		domain.IsRuleViolation(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}

func validateID(kind, id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: %s %q is not a valid id", domain.ErrNotFound, kind, id)
	}
	return nil
}
