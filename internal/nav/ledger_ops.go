package nav

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/money"
)

// EntryInput is a ledger posting as submitted by a caller
type EntryInput struct {
	EntryType   EntryType
	Amount      decimal.Decimal
	InvestorID  *uuid.UUID
	TxDate      time.Time
	Category    string
	Description string
	Reference   string
}

// ImportResult reports the outcome of a bulk import
type ImportResult struct {
	DryRun  bool
	Entries []*LedgerEntry
	Preview *PeriodPreview
}

// validateEntry applies the posting rules:
// amounts are non-zero and only adjustments may be negative; contributions and
// withdrawals name an investor, income and expenses never do.
func (s *Service) validateEntry(ctx context.Context, scope Scope, in EntryInput) error {
	if !in.EntryType.IsValid() {
		return &ValidationError{Field: "entry_type", Message: "unknown entry type " + string(in.EntryType)}
	}

	amount := money.Round(in.Amount)
	if amount.IsZero() {
		return &ValidationError{Field: "amount", Message: "amount must be non-zero"}
	}
	if amount.IsNegative() && in.EntryType != EntryAdjustment {
		return &ValidationError{Field: "amount", Message: "only adjustments may be negative"}
	}

	if in.EntryType.RequiresInvestor() && in.InvestorID == nil {
		return &ValidationError{Field: "investor_id", Message: string(in.EntryType) + " requires an investor"}
	}
	if in.EntryType.ForbidsInvestor() && in.InvestorID != nil {
		return &ValidationError{Field: "investor_id", Message: string(in.EntryType) + " cannot reference an investor"}
	}

	if in.InvestorID != nil {
		inv, err := s.repo.GetInvestor(ctx, *in.InvestorID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return notFound("investor", *in.InvestorID)
			}
			return fmt.Errorf("failed to get investor: %w", err)
		}
		if inv.ClubID != scope.ClubID || !inv.Active {
			return notFound("investor", *in.InvestorID)
		}
	}

	return nil
}

func (s *Service) newEntry(scope Scope, periodID uuid.UUID, in EntryInput) *LedgerEntry {
	now := s.now()
	txDate := in.TxDate
	if txDate.IsZero() {
		txDate = now
	}
	return &LedgerEntry{
		ID:          uuid.New(),
		TenantID:    scope.TenantID,
		ClubID:      scope.ClubID,
		PeriodID:    periodID,
		EntryType:   in.EntryType,
		Amount:      money.Round(in.Amount),
		InvestorID:  in.InvestorID,
		TxDate:      txDate,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Reference:   strings.TrimSpace(in.Reference),
		CreatedBy:   scope.ActorID,
		CreatedAt:   now,
	}
}

// drawsDown reports whether an entry lowers its investor's balance
func drawsDown(e *LedgerEntry) bool {
	if e.InvestorID == nil {
		return false
	}
	return e.EntryType == EntryWithdrawal || (e.EntryType == EntryAdjustment && e.Amount.IsNegative())
}

// buildsUp reports whether an entry raises its investor's balance
func buildsUp(e *LedgerEntry) bool {
	if e.InvestorID == nil {
		return false
	}
	return e.EntryType == EntryContribution || (e.EntryType == EntryAdjustment && e.Amount.IsPositive())
}

// checkOverdrawn allocates the projected ledger and rejects it when any watched
// investor would close the period below zero. watched maps investor to the field
// reported back to the caller.
func checkOverdrawn(period *AccountingPeriod, openings []OpeningPosition, entries []*LedgerEntry, watched map[uuid.UUID]string) error {
	if len(watched) == 0 {
		return nil
	}
	alloc := Allocate(period.OpeningNAV, openings, Aggregate(entries))
	for _, pos := range alloc.Positions {
		field, ok := watched[pos.InvestorID]
		if !ok || !pos.ClosingBalance.IsNegative() {
			continue
		}
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("investor %s would close the period at %s", pos.InvestorID, money.Format(pos.ClosingBalance)),
		}
	}
	return nil
}

func ledgerLocked(period *AccountingPeriod, op string) error {
	if CanMutateLedger(period.Status) {
		return nil
	}
	return &StateError{PeriodID: period.ID, Status: period.Status, Op: op, Err: ErrPeriodClosed}
}

// loadEntry reads an entry and hides it unless it belongs to the scope's club
func (s *Service) loadEntry(ctx context.Context, scope Scope, id uuid.UUID) (*LedgerEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("ledger entry", id)
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if entry.TenantID != scope.TenantID || entry.ClubID != scope.ClubID {
		return nil, notFound("ledger entry", id)
	}
	return entry, nil
}

// PostEntry records a ledger entry in a draft or review period
func (s *Service) PostEntry(ctx context.Context, scope Scope, periodID uuid.UUID, in EntryInput) (*LedgerEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateEntry(ctx, scope, in); err != nil {
		return nil, err
	}

	entry := s.newEntry(scope, periodID, in)
	err := s.withinPeriod(ctx, scope, periodID, func(txCtx context.Context, period *AccountingPeriod) error {
		if err := ledgerLocked(period, "post entry"); err != nil {
			return err
		}
		if drawsDown(entry) {
			entries, openings, err := s.loadLedgerTx(txCtx, period.ID)
			if err != nil {
				return err
			}
			watched := map[uuid.UUID]string{*entry.InvestorID: "amount"}
			if err := checkOverdrawn(period, openings, append(entries, entry), watched); err != nil {
				return err
			}
		}
		if err := s.repo.CreateEntry(txCtx, entry); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Debug("ledger entry posted",
		"entry_id", entry.ID.String(),
		"period_id", periodID.String(),
		"entry_type", string(entry.EntryType),
		"amount", entry.Amount.StringFixed(money.MoneyScale),
	)
	s.emit(ctx, scope, EventEntryPosted, periodID, &entry.ID, entryEventData(entry))

	return entry, nil
}

// UpdateEntry replaces an entry's fields while its period is still open
func (s *Service) UpdateEntry(ctx context.Context, scope Scope, entryID uuid.UUID, in EntryInput) (*LedgerEntry, error) {
	existing, err := s.loadEntry(ctx, scope, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.validateEntry(ctx, scope, in); err != nil {
		return nil, err
	}

	var updated *LedgerEntry
	err = s.withinPeriod(ctx, scope, existing.PeriodID, func(txCtx context.Context, period *AccountingPeriod) error {
		if err := ledgerLocked(period, "update entry"); err != nil {
			return err
		}

		current, err := s.repo.GetEntry(txCtx, entryID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return notFound("ledger entry", entryID)
			}
			return fmt.Errorf("failed to get entry: %w", err)
		}
		before := *current

		current.EntryType = in.EntryType
		current.Amount = money.Round(in.Amount)
		current.InvestorID = in.InvestorID
		if !in.TxDate.IsZero() {
			current.TxDate = in.TxDate
		}
		current.Category = strings.TrimSpace(in.Category)
		current.Description = strings.TrimSpace(in.Description)
		current.Reference = strings.TrimSpace(in.Reference)

		watched := make(map[uuid.UUID]string)
		if buildsUp(&before) {
			watched[*before.InvestorID] = "amount"
		}
		if drawsDown(current) {
			watched[*current.InvestorID] = "amount"
		}
		if len(watched) > 0 {
			entries, openings, err := s.loadLedgerTx(txCtx, period.ID)
			if err != nil {
				return err
			}
			for i, e := range entries {
				if e.ID == current.ID {
					entries[i] = current
				}
			}
			if err := checkOverdrawn(period, openings, entries, watched); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateEntry(txCtx, current); err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, scope, EventEntryUpdated, updated.PeriodID, &updated.ID, entryEventData(updated))
	return updated, nil
}

// DeleteEntry removes an entry from a draft period
func (s *Service) DeleteEntry(ctx context.Context, scope Scope, entryID uuid.UUID) error {
	existing, err := s.loadEntry(ctx, scope, entryID)
	if err != nil {
		return err
	}

	err = s.withinPeriod(ctx, scope, existing.PeriodID, func(txCtx context.Context, period *AccountingPeriod) error {
		if period.IsClosed() {
			return &StateError{PeriodID: period.ID, Status: period.Status, Op: "delete entry", Err: ErrPeriodClosed}
		}
		if !CanDeleteEntries(period.Status) {
			return &StateError{PeriodID: period.ID, Status: period.Status, Op: "delete entry", Err: ErrDeleteRequiresDraft}
		}
		if buildsUp(existing) {
			entries, openings, err := s.loadLedgerTx(txCtx, period.ID)
			if err != nil {
				return err
			}
			remaining := slices.DeleteFunc(entries, func(e *LedgerEntry) bool { return e.ID == existing.ID })
			watched := map[uuid.UUID]string{*existing.InvestorID: "entry"}
			if err := checkOverdrawn(period, openings, remaining, watched); err != nil {
				return err
			}
		}
		if err := s.repo.DeleteEntry(txCtx, entryID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return notFound("ledger entry", entryID)
			}
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, scope, EventEntryDeleted, existing.PeriodID, &existing.ID, entryEventData(existing))
	return nil
}

// ListEntries returns a period's ledger entries
func (s *Service) ListEntries(ctx context.Context, scope Scope, periodID uuid.UUID) ([]*LedgerEntry, error) {
	period, err := s.loadPeriod(ctx, scope, periodID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, period.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// ImportEntries posts a batch of entries all-or-nothing.
// A dry run validates the batch and returns the preview the period would have,
// without writing anything.
func (s *Service) ImportEntries(ctx context.Context, scope Scope, periodID uuid.UUID, inputs []EntryInput, dryRun bool) (*ImportResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, &ValidationError{Field: "rows", Message: "import contains no rows"}
	}

	for i, in := range inputs {
		if err := s.validateEntry(ctx, scope, in); err != nil {
			var v *ValidationError
			if errors.As(err, &v) {
				return nil, &ValidationError{Field: fmt.Sprintf("rows[%d].%s", i, v.Field), Message: v.Message}
			}
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	entries := make([]*LedgerEntry, 0, len(inputs))
	watched := make(map[uuid.UUID]string)
	for i, in := range inputs {
		entry := s.newEntry(scope, periodID, in)
		if drawsDown(entry) {
			if _, seen := watched[*entry.InvestorID]; !seen {
				watched[*entry.InvestorID] = fmt.Sprintf("rows[%d].amount", i)
			}
		}
		entries = append(entries, entry)
	}

	if dryRun {
		period, err := s.loadPeriod(ctx, scope, periodID)
		if err != nil {
			return nil, err
		}
		if err := ledgerLocked(period, "import entries"); err != nil {
			return nil, err
		}
		existing, openings, err := s.loadLedger(ctx, period.ID)
		if err != nil {
			return nil, err
		}
		combined := append(append([]*LedgerEntry{}, existing...), entries...)
		if err := checkOverdrawn(period, openings, combined, watched); err != nil {
			return nil, err
		}
		return &ImportResult{
			DryRun:  true,
			Entries: entries,
			Preview: s.preview(period, s.evaluate(period, combined, openings)),
		}, nil
	}

	err := s.withinPeriod(ctx, scope, periodID, func(txCtx context.Context, period *AccountingPeriod) error {
		if err := ledgerLocked(period, "import entries"); err != nil {
			return err
		}
		if len(watched) > 0 {
			existing, openings, err := s.loadLedgerTx(txCtx, period.ID)
			if err != nil {
				return err
			}
			if err := checkOverdrawn(period, openings, append(existing, entries...), watched); err != nil {
				return err
			}
		}
		for i, entry := range entries {
			if err := s.repo.CreateEntry(txCtx, entry); err != nil {
				return fmt.Errorf("failed to create entry for row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("ledger entries imported", "period_id", periodID.String(), "rows", len(entries))
	for _, entry := range entries {
		s.emit(ctx, scope, EventEntryPosted, periodID, &entry.ID, entryEventData(entry))
	}

	// rows are committed by now, so a preview failure leaves Preview nil
	preview, err := s.PreviewPeriod(ctx, scope, periodID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("preview after import failed", "period_id", periodID.String())
	}
	return &ImportResult{Entries: entries, Preview: preview}, nil
}

func entryEventData(entry *LedgerEntry) map[string]string {
	data := map[string]string{
		"entry_type": string(entry.EntryType),
		"amount":     entry.Amount.StringFixed(money.MoneyScale),
	}
	if entry.InvestorID != nil {
		data["investor_id"] = entry.InvestorID.String()
	}
	return data
}
