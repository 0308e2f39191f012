package nav

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

// Service is the NAV engine. It owns the period lifecycle, allocation,
// reconciliation and the close snapshot; storage, caching and audit
// persistence are collaborators.
type Service struct {
	repo     Repository
	cache    SnapshotCache
	events   EventSink
	logger   *logger.Logger
	currency string
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithSnapshotCache sets the cache consulted for closed snapshots
func WithSnapshotCache(cache SnapshotCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithEventSink sets where audit events go
func WithEventSink(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithCurrency sets the currency code shown in reconciliation stamps
func WithCurrency(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.currency = code
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new NAV engine
func NewService(repo Repository, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		logger:   log.WithField("component", "nav"),
		currency: DefaultCurrency,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = NewLogSink(log)
	}
	return s
}

// loadPeriod reads a period and hides it unless it belongs to the scope's club
func (s *Service) loadPeriod(ctx context.Context, scope Scope, id uuid.UUID) (*AccountingPeriod, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	period, err := s.repo.GetPeriod(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("period", id)
		}
		return nil, fmt.Errorf("failed to get period: %w", err)
	}
	if !inScope(scope, period) {
		return nil, notFound("period", id)
	}
	return period, nil
}

func inScope(scope Scope, period *AccountingPeriod) bool {
	return period.TenantID == scope.TenantID && period.ClubID == scope.ClubID
}

// withinPeriod runs fn inside a transaction holding the period's write lock.
// The period passed to fn is re-read under the lock, so its status is current.
func (s *Service) withinPeriod(
	ctx context.Context,
	scope Scope,
	periodID uuid.UUID,
	fn func(txCtx context.Context, period *AccountingPeriod) error,
) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	txCtx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Rollback on any error - ignore rollback errors as the operation failed anyway
			_ = s.repo.RollbackTx(txCtx)
		}
	}()

	period, err := s.repo.LockPeriod(txCtx, periodID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound("period", periodID)
		}
		return fmt.Errorf("failed to lock period: %w", err)
	}
	if !inScope(scope, period) {
		return notFound("period", periodID)
	}

	if err := fn(txCtx, period); err != nil {
		return err
	}

	if err := s.repo.CommitTx(txCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	committed = true
	return nil
}

// loadLedger reads a period's entries and opening positions in parallel.
// It must not be used with a transaction context.
func (s *Service) loadLedger(ctx context.Context, periodID uuid.UUID) ([]*LedgerEntry, []OpeningPosition, error) {
	var (
		entries  []*LedgerEntry
		openings []OpeningPosition
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.repo.ListEntries(gctx, periodID)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		openings, err = s.repo.ListOpeningPositions(gctx, periodID)
		if err != nil {
			return fmt.Errorf("failed to list opening positions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return entries, openings, nil
}

// loadLedgerTx is loadLedger for a transaction context, where queries run one at a time.
func (s *Service) loadLedgerTx(txCtx context.Context, periodID uuid.UUID) ([]*LedgerEntry, []OpeningPosition, error) {
	entries, err := s.repo.ListEntries(txCtx, periodID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list entries: %w", err)
	}
	openings, err := s.repo.ListOpeningPositions(txCtx, periodID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list opening positions: %w", err)
	}
	return entries, openings, nil
}

// evaluation is everything derived from a period's ledger at one point in time
type evaluation struct {
	entryCount int
	alloc      *Allocation
	recon      ReconciliationResult
	checklist  CloseChecklist
}

func (s *Service) evaluate(period *AccountingPeriod, entries []*LedgerEntry, openings []OpeningPosition) evaluation {
	agg := Aggregate(entries)
	alloc := Allocate(period.OpeningNAV, openings, agg)
	recon := Reconcile(alloc, s.currency)
	return evaluation{
		entryCount: agg.EntryCount,
		alloc:      alloc,
		recon:      recon,
		checklist:  BuildChecklist(period, agg.EntryCount, alloc, recon),
	}
}

func (s *Service) preview(period *AccountingPeriod, ev evaluation) *PeriodPreview {
	return &PeriodPreview{
		Period:         period,
		Totals:         ev.alloc.Totals,
		Positions:      ev.alloc.Positions,
		ClosingNAV:     ev.alloc.ClosingNAV,
		InvestorTotal:  ev.alloc.InvestorTotal,
		Reconciliation: ev.recon,
		Insights:       BuildInsights(ev.alloc, ev.recon, s.currency),
	}
}

// emit hands an event to the sink. The operation has already committed, so
// sink failures are logged and dropped.
func (s *Service) emit(ctx context.Context, scope Scope, eventType EventType, periodID uuid.UUID, entityID *uuid.UUID, data map[string]string) {
	event := Event{
		Type:       eventType,
		TenantID:   scope.TenantID,
		ClubID:     scope.ClubID,
		PeriodID:   periodID,
		ActorID:    scope.ActorID,
		EntityID:   entityID,
		OccurredAt: s.now(),
		Data:       data,
	}
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to emit audit event",
			"event", string(eventType),
			"period_id", periodID.String(),
		)
	}
}
