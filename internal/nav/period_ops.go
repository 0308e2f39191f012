package nav

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/money"
)

// OpeningInput is an explicit opening balance for one investor
type OpeningInput struct {
	InvestorID     uuid.UUID
	OpeningBalance decimal.Decimal
}

// OpenPeriodInput describes a new accounting period.
//
// With Openings the period starts from those balances and OpeningNAV, when set,
// must equal their sum. Without them the period rolls forward from the latest
// earlier closed period's snapshot.
type OpenPeriodInput struct {
	Year       int
	Month      int
	OpeningNAV *decimal.Decimal
	Openings   []OpeningInput
}

// OpenPeriod creates a draft period for the scope's club
func (s *Service) OpenPeriod(ctx context.Context, scope Scope, in OpenPeriodInput) (*AccountingPeriod, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if in.Year < 1900 || in.Year > 9999 {
		return nil, &ValidationError{Field: "year", Message: "year is out of range"}
	}
	if in.Month < 1 || in.Month > 12 {
		return nil, &ValidationError{Field: "month", Message: "month must be between 1 and 12"}
	}

	periods, err := s.repo.ListPeriods(ctx, scope.ClubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}

	period := &AccountingPeriod{
		ID:                 uuid.New(),
		TenantID:           scope.TenantID,
		ClubID:             scope.ClubID,
		Year:               in.Year,
		Month:              in.Month,
		Status:             StatusDraft,
		ClosingNAV:         money.Zero,
		ReconciliationDiff: money.Zero,
	}
	for _, p := range periods {
		if p.Year == in.Year && p.Month == in.Month {
			return nil, &StateError{PeriodID: p.ID, Status: p.Status, Op: "open", Err: ErrPeriodExists}
		}
	}

	investors, err := s.repo.ListInvestors(ctx, scope.ClubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investors: %w", err)
	}

	openingNAV, openings, err := s.resolveOpenings(ctx, period, periods, investors, in)
	if err != nil {
		return nil, err
	}
	period.OpeningNAV = openingNAV

	now := s.now()
	period.CreatedAt = now
	period.UpdatedAt = now

	txCtx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = s.repo.RollbackTx(txCtx)
		}
	}()

	if err := s.repo.CreatePeriod(txCtx, period); err != nil {
		if errors.Is(err, ErrDuplicatePeriod) {
			return nil, &StateError{PeriodID: period.ID, Status: StatusDraft, Op: "open", Err: ErrPeriodExists}
		}
		return nil, fmt.Errorf("failed to create period: %w", err)
	}
	if len(openings) > 0 {
		if err := s.repo.InsertOpeningPositions(txCtx, openings); err != nil {
			return nil, fmt.Errorf("failed to insert opening positions: %w", err)
		}
	}

	if err := s.repo.CommitTx(txCtx); err != nil {
		if errors.Is(err, ErrDuplicatePeriod) {
			return nil, &StateError{PeriodID: period.ID, Status: StatusDraft, Op: "open", Err: ErrPeriodExists}
		}
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	s.logger.WithContext(ctx).Info("period opened",
		"period_id", period.ID.String(),
		"period", period.Label(),
		"opening_nav", period.OpeningNAV.StringFixed(money.MoneyScale),
		"investors", len(openings),
	)
	s.emit(ctx, scope, EventPeriodOpened, period.ID, nil, map[string]string{
		"period":      period.Label(),
		"opening_nav": period.OpeningNAV.StringFixed(money.MoneyScale),
	})

	return period, nil
}

// resolveOpenings decides the opening NAV and per-investor openings of a new period.
// Every active investor of the club gets a row, zero when nothing else applies.
func (s *Service) resolveOpenings(
	ctx context.Context,
	period *AccountingPeriod,
	existing []*AccountingPeriod,
	investors []*Investor,
	in OpenPeriodInput,
) (decimal.Decimal, []OpeningPosition, error) {
	known := make(map[uuid.UUID]*Investor, len(investors))
	for _, inv := range investors {
		known[inv.ID] = inv
	}

	balances := make(map[uuid.UUID]decimal.Decimal)
	var openingNAV decimal.Decimal

	switch {
	case len(in.Openings) > 0:
		total := money.Zero
		for i, op := range in.Openings {
			field := fmt.Sprintf("openings[%d]", i)
			if _, ok := known[op.InvestorID]; !ok {
				return decimal.Zero, nil, &ValidationError{Field: field, Message: "unknown investor " + op.InvestorID.String()}
			}
			if _, dup := balances[op.InvestorID]; dup {
				return decimal.Zero, nil, &ValidationError{Field: field, Message: "duplicate investor " + op.InvestorID.String()}
			}
			bal := money.Round(op.OpeningBalance)
			if bal.IsNegative() {
				return decimal.Zero, nil, &ValidationError{Field: field, Message: "opening balance cannot be negative"}
			}
			balances[op.InvestorID] = bal
			total = total.Add(bal)
		}
		openingNAV = money.Round(total)
		if in.OpeningNAV != nil && !money.Equal(*in.OpeningNAV, openingNAV) {
			return decimal.Zero, nil, &ValidationError{
				Field:   "opening_nav",
				Message: fmt.Sprintf("opening balances sum to %s, not %s", money.Format(openingNAV), money.Format(*in.OpeningNAV)),
			}
		}

	default:
		prev := latestClosedBefore(existing, period)
		if prev != nil {
			snap, err := s.repo.GetSnapshotByPeriod(ctx, prev.ID)
			if err != nil {
				return decimal.Zero, nil, fmt.Errorf("failed to get snapshot for period %s: %w", prev.Label(), err)
			}
			for _, b := range snap.InvestorBalances {
				if b.ClosingBalance.IsNegative() {
					msg := fmt.Sprintf("investor %s closed %s at %s; pass explicit openings",
						b.InvestorID, prev.Label(), money.Format(b.ClosingBalance))
					return decimal.Zero, nil, &ValidationError{Field: "openings", Message: msg}
				}
				balances[b.InvestorID] = b.ClosingBalance
			}
			openingNAV = snap.ClosingNAV
			if in.OpeningNAV != nil && !money.Equal(*in.OpeningNAV, openingNAV) {
				return decimal.Zero, nil, &ValidationError{
					Field:   "opening_nav",
					Message: fmt.Sprintf("previous period %s closed at %s", prev.Label(), money.Format(openingNAV)),
				}
			}
		} else {
			if in.OpeningNAV == nil {
				return decimal.Zero, nil, &ValidationError{Field: "openings", Message: "first period needs opening balances or an opening NAV"}
			}
			openingNAV = money.Round(*in.OpeningNAV)
			if !openingNAV.IsZero() {
				return decimal.Zero, nil, &ValidationError{Field: "openings", Message: "opening balances are required when opening NAV is non-zero"}
			}
		}
	}

	for _, inv := range investors {
		if _, ok := balances[inv.ID]; !ok && inv.Active {
			balances[inv.ID] = money.Zero
		}
	}

	openings := make([]OpeningPosition, 0, len(balances))
	for id, bal := range balances {
		openings = append(openings, OpeningPosition{PeriodID: period.ID, InvestorID: id, OpeningBalance: bal})
	}
	sortOpenings(openings)

	return openingNAV, openings, nil
}

func latestClosedBefore(periods []*AccountingPeriod, target *AccountingPeriod) *AccountingPeriod {
	var latest *AccountingPeriod
	for _, p := range periods {
		if !p.IsClosed() || !p.Before(target) {
			continue
		}
		if latest == nil || latest.Before(p) {
			latest = p
		}
	}
	return latest
}

// ListPeriods returns the club's periods, most recent first
func (s *Service) ListPeriods(ctx context.Context, scope Scope) ([]*AccountingPeriod, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	periods, err := s.repo.ListPeriods(ctx, scope.ClubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	out := periods[:0]
	for _, p := range periods {
		if p.TenantID == scope.TenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetPeriod returns one period of the scope's club
func (s *Service) GetPeriod(ctx context.Context, scope Scope, periodID uuid.UUID) (*AccountingPeriod, error) {
	return s.loadPeriod(ctx, scope, periodID)
}

// PreviewPeriod computes the period's allocation and reconciliation without persisting anything.
// Any status may be previewed; repeated calls over an unchanged ledger return identical results.
func (s *Service) PreviewPeriod(ctx context.Context, scope Scope, periodID uuid.UUID) (*PeriodPreview, error) {
	period, err := s.loadPeriod(ctx, scope, periodID)
	if err != nil {
		return nil, err
	}
	entries, openings, err := s.loadLedger(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	return s.preview(period, s.evaluate(period, entries, openings)), nil
}

// Reconcile runs the reconciliation gate against the period's current ledger
func (s *Service) Reconcile(ctx context.Context, scope Scope, periodID uuid.UUID) (ReconciliationResult, error) {
	period, err := s.loadPeriod(ctx, scope, periodID)
	if err != nil {
		return ReconciliationResult{}, err
	}
	entries, openings, err := s.loadLedger(ctx, period.ID)
	if err != nil {
		return ReconciliationResult{}, err
	}
	return s.evaluate(period, entries, openings).recon, nil
}

// GetCloseChecklist evaluates the close gates without changing anything
func (s *Service) GetCloseChecklist(ctx context.Context, scope Scope, periodID uuid.UUID) (*CloseChecklist, error) {
	period, err := s.loadPeriod(ctx, scope, periodID)
	if err != nil {
		return nil, err
	}
	entries, openings, err := s.loadLedger(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	checklist := s.evaluate(period, entries, openings).checklist
	return &checklist, nil
}

// SubmitForReview moves a draft period to review
func (s *Service) SubmitForReview(ctx context.Context, scope Scope, periodID uuid.UUID) (*AccountingPeriod, error) {
	period, err := s.transition(ctx, scope, periodID, TransitionSubmitForReview)
	if err != nil {
		return nil, err
	}
	s.logger.WithContext(ctx).Info("period submitted for review", "period_id", period.ID.String(), "period", period.Label())
	s.emit(ctx, scope, EventSubmittedForReview, period.ID, nil, map[string]string{"period": period.Label()})
	return period, nil
}

// ReturnToDraft sends a period under review back to draft
func (s *Service) ReturnToDraft(ctx context.Context, scope Scope, periodID uuid.UUID) (*AccountingPeriod, error) {
	period, err := s.transition(ctx, scope, periodID, TransitionReturnToDraft)
	if err != nil {
		return nil, err
	}
	s.logger.WithContext(ctx).Info("period returned to draft", "period_id", period.ID.String(), "period", period.Label())
	s.emit(ctx, scope, EventReturnedToDraft, period.ID, nil, map[string]string{"period": period.Label()})
	return period, nil
}

func (s *Service) transition(ctx context.Context, scope Scope, periodID uuid.UUID, t Transition) (*AccountingPeriod, error) {
	var updated *AccountingPeriod
	err := s.withinPeriod(ctx, scope, periodID, func(txCtx context.Context, period *AccountingPeriod) error {
		next, err := NextStatus(period.Status, t)
		if err != nil {
			return &StateError{PeriodID: period.ID, Status: period.Status, Op: string(t), Err: err}
		}
		period.Status = next
		period.UpdatedAt = s.now()
		if err := s.repo.UpdatePeriod(txCtx, period); err != nil {
			return fmt.Errorf("failed to update period: %w", err)
		}
		updated = period
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ClosePeriod locks a reviewed period and writes its snapshot.
//
// The allocation is recomputed under the period lock, the snapshot and investor
// balances are inserted and the status flips to closed in one transaction.
// A period that is not in review fails with a StateError; a period whose NAV does
// not tie out fails with a ReconciliationMismatchError and stays in review.
func (s *Service) ClosePeriod(ctx context.Context, scope Scope, periodID uuid.UUID) (*NavSnapshot, error) {
	var (
		snap    *NavSnapshot
		blocked *ReconciliationMismatchError
	)

	err := s.withinPeriod(ctx, scope, periodID, func(txCtx context.Context, period *AccountingPeriod) error {
		switch period.Status {
		case StatusClosed:
			return &StateError{PeriodID: period.ID, Status: period.Status, Op: "close", Err: ErrPeriodClosed}
		case StatusDraft:
			return &StateError{
				PeriodID: period.ID,
				Status:   period.Status,
				Op:       "close",
				Err:      fmt.Errorf("%w: submitted_for_review", ErrChecklistFailed),
			}
		}

		entries, openings, err := s.loadLedgerTx(txCtx, period.ID)
		if err != nil {
			return err
		}
		ev := s.evaluate(period, entries, openings)

		if !ev.recon.Reconciled {
			blocked = &ReconciliationMismatchError{
				PeriodID: period.ID,
				Mismatch: ev.recon.Mismatch,
				Stamp:    ev.recon.Stamp,
				Reasons:  ev.recon.Reasons,
			}
			return blocked
		}
		if !ev.checklist.CanClose {
			return &StateError{
				PeriodID: period.ID,
				Status:   period.Status,
				Op:       "close",
				Err:      fmt.Errorf("%w: %s", ErrChecklistFailed, strings.Join(ev.checklist.Failed(), ", ")),
			}
		}

		now := s.now()
		var balances []InvestorBalance
		snap, balances = BuildSnapshot(period, ev.alloc, scope.ActorID, now)

		if err := s.repo.InsertSnapshot(txCtx, snap); err != nil {
			if errors.Is(err, ErrSnapshotExists) {
				return &StateError{PeriodID: period.ID, Status: period.Status, Op: "close", Err: ErrPeriodClosed}
			}
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		if err := s.repo.InsertInvestorBalances(txCtx, balances); err != nil {
			return fmt.Errorf("failed to insert investor balances: %w", err)
		}

		actor := scope.ActorID
		period.Status = StatusClosed
		period.ClosingNAV = ev.alloc.ClosingNAV
		period.ReconciliationDiff = ev.recon.Mismatch
		period.LockedAt = &now
		period.ClosedBy = &actor
		period.UpdatedAt = now
		if err := s.repo.UpdatePeriod(txCtx, period); err != nil {
			return fmt.Errorf("failed to update period: %w", err)
		}
		return nil
	})

	if blocked != nil {
		s.logger.WithContext(ctx).Warn("period close blocked by reconciliation mismatch",
			"period_id", periodID.String(),
			"mismatch", blocked.Mismatch.StringFixed(money.MoneyScale),
			"stamp", blocked.Stamp,
		)
		s.emit(ctx, scope, EventCloseBlockedMismatch, periodID, nil, map[string]string{
			"mismatch": blocked.Mismatch.StringFixed(money.MoneyScale),
			"stamp":    blocked.Stamp,
		})
		return nil, blocked
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("failed to cache snapshot", "period_id", periodID.String())
		}
	}

	s.logger.WithContext(ctx).Info("period closed",
		"period_id", periodID.String(),
		"snapshot_id", snap.ID.String(),
		"closing_nav", snap.ClosingNAV.StringFixed(money.MoneyScale),
		"investors", len(snap.InvestorBalances),
	)
	s.emit(ctx, scope, EventPeriodClosed, periodID, &snap.ID, map[string]string{
		"closing_nav": snap.ClosingNAV.StringFixed(money.MoneyScale),
	})

	return snap, nil
}

// GetSnapshot returns the immutable snapshot of a closed period
func (s *Service) GetSnapshot(ctx context.Context, scope Scope, periodID uuid.UUID) (*NavSnapshot, error) {
	period, err := s.loadPeriod(ctx, scope, periodID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, period.ID)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("snapshot cache read failed", "period_id", period.ID.String())
		} else if cached != nil {
			return cached, nil
		}
	}

	snap, err := s.repo.GetSnapshotByPeriod(ctx, period.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Resource: "snapshot for period", ID: period.ID.String()}
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("failed to cache snapshot", "period_id", period.ID.String())
		}
	}

	return snap, nil
}
