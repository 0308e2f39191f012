package nav

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodStatus is the lifecycle state of an accounting period
type PeriodStatus string

const (
	StatusDraft  PeriodStatus = "draft"
	StatusReview PeriodStatus = "review"
	StatusClosed PeriodStatus = "closed"
)

// IsValid reports whether s is a known status
func (s PeriodStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusClosed:
		return true
	}
	return false
}

// ParsePeriodStatus converts a free string into a PeriodStatus
func ParsePeriodStatus(raw string) (PeriodStatus, error) {
	s := PeriodStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", &ValidationError{Field: "status", Message: "unknown period status " + raw}
	}
	return s, nil
}

// EntryType is the kind of a ledger entry
type EntryType string

const (
	EntryContribution EntryType = "contribution"
	EntryWithdrawal   EntryType = "withdrawal"
	EntryIncome       EntryType = "income"
	EntryExpense      EntryType = "expense"
	EntryAdjustment   EntryType = "adjustment"
)

// IsValid reports whether t is a known entry type
func (t EntryType) IsValid() bool {
	switch t {
	case EntryContribution, EntryWithdrawal, EntryIncome, EntryExpense, EntryAdjustment:
		return true
	}
	return false
}

// RequiresInvestor is true for entry types that move an investor's capital
func (t EntryType) RequiresInvestor() bool {
	return t == EntryContribution || t == EntryWithdrawal
}

// ForbidsInvestor is true for club-level entry types
func (t EntryType) ForbidsInvestor() bool {
	return t == EntryIncome || t == EntryExpense
}

// ParseEntryType converts a free string into an EntryType
func ParseEntryType(raw string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", &ValidationError{Field: "entry_type", Message: "unknown entry type " + raw}
	}
	return t, nil
}

// Scope identifies who is acting and on which club. Every engine call carries one.
type Scope struct {
	TenantID uuid.UUID
	ClubID   uuid.UUID
	ActorID  uuid.UUID
}

// Validate checks that the scope names a tenant and a club
func (s Scope) Validate() error {
	if s.TenantID == uuid.Nil {
		return &ValidationError{Field: "tenant_id", Message: "tenant is required"}
	}
	if s.ClubID == uuid.Nil {
		return &ValidationError{Field: "club_id", Message: "club is required"}
	}
	return nil
}

// AccountingPeriod is one club-month
type AccountingPeriod struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	ClubID             uuid.UUID
	Year               int
	Month              int
	Status             PeriodStatus
	OpeningNAV         decimal.Decimal
	ClosingNAV         decimal.Decimal
	ReconciliationDiff decimal.Decimal
	LockedAt           *time.Time
	ClosedBy           *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Label renders the period as YYYY-MM
func (p *AccountingPeriod) Label() string {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// IsClosed returns true once the period has been locked
func (p *AccountingPeriod) IsClosed() bool {
	return p.Status == StatusClosed
}

// Before reports whether p precedes other on the calendar
func (p *AccountingPeriod) Before(other *AccountingPeriod) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// LedgerEntry is a single posting against a period
type LedgerEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ClubID      uuid.UUID
	PeriodID    uuid.UUID
	EntryType   EntryType
	Amount      decimal.Decimal
	InvestorID  *uuid.UUID
	TxDate      time.Time
	Category    string
	Description string
	Reference   string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// Investor is a club member holding a capital account
type Investor struct {
	ID     uuid.UUID
	ClubID uuid.UUID
	Name   string
	Active bool
}

// OpeningPosition is an investor's balance at the start of a period
type OpeningPosition struct {
	PeriodID       uuid.UUID
	InvestorID     uuid.UUID
	OpeningBalance decimal.Decimal
}

// InvestorPosition is the computed view of one investor for an open period.
// It is rebuilt on every preview and never stored while the period is open.
type InvestorPosition struct {
	InvestorID     uuid.UUID
	OpeningBalance decimal.Decimal
	OwnershipPct   decimal.Decimal
	IncomeShare    decimal.Decimal
	ExpenseShare   decimal.Decimal
	NetAllocation  decimal.Decimal
	Contributions  decimal.Decimal
	Withdrawals    decimal.Decimal
	Adjustments    decimal.Decimal
	ClosingBalance decimal.Decimal
}

// NavSnapshot is the immutable record written when a period closes
type NavSnapshot struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	ClubID             uuid.UUID
	PeriodID           uuid.UUID
	OpeningNAV         decimal.Decimal
	ContributionsTotal decimal.Decimal
	WithdrawalsTotal   decimal.Decimal
	IncomeTotal        decimal.Decimal
	ExpensesTotal      decimal.Decimal
	AdjustmentsTotal   decimal.Decimal
	ClosingNAV         decimal.Decimal
	InvestorTotal      decimal.Decimal
	CreatedBy          uuid.UUID
	CreatedAt          time.Time

	// Populated on read
	InvestorBalances []InvestorBalance
}

// InvestorBalance is the frozen copy of an InvestorPosition taken at close
type InvestorBalance struct {
	SnapshotID     uuid.UUID
	PeriodID       uuid.UUID
	InvestorID     uuid.UUID
	OpeningBalance decimal.Decimal
	OwnershipPct   decimal.Decimal
	IncomeShare    decimal.Decimal
	ExpenseShare   decimal.Decimal
	NetAllocation  decimal.Decimal
	Contributions  decimal.Decimal
	Withdrawals    decimal.Decimal
	Adjustments    decimal.Decimal
	ClosingBalance decimal.Decimal
}

// ReconciliationResult is the outcome of comparing club NAV with investor balances
type ReconciliationResult struct {
	Reconciled     bool
	Mismatch       decimal.Decimal
	ClubClosingNAV decimal.Decimal
	InvestorTotal  decimal.Decimal
	Stamp          string
	Reasons        []string
}

// CloseChecklist lists the gates a period must pass before it can be closed
type CloseChecklist struct {
	PeriodID           uuid.UUID
	HasPositions       bool
	HasLedgerEntries   bool
	SubmittedForReview bool
	Reconciled         bool
	NotAlreadyClosed   bool
	CanClose           bool
	Stamp              string
	Mismatch           decimal.Decimal
	Reasons            []string
}

// Failed returns the keys of the checklist items that did not pass
func (c *CloseChecklist) Failed() []string {
	var failed []string
	if !c.HasPositions {
		failed = append(failed, "has_positions")
	}
	if !c.HasLedgerEntries {
		failed = append(failed, "has_ledger_entries")
	}
	if !c.SubmittedForReview {
		failed = append(failed, "submitted_for_review")
	}
	if !c.Reconciled {
		failed = append(failed, "reconciled")
	}
	if !c.NotAlreadyClosed {
		failed = append(failed, "not_already_closed")
	}
	return failed
}

// Insight is a short observation attached to a preview
type Insight struct {
	Code     string
	Severity string
	Message  string
}

// PeriodPreview is the full computed state of a period without persisting anything
type PeriodPreview struct {
	Period         *AccountingPeriod
	Totals         ClubTotals
	Positions      []InvestorPosition
	ClosingNAV     decimal.Decimal
	InvestorTotal  decimal.Decimal
	Reconciliation ReconciliationResult
	Insights       []Insight
}
