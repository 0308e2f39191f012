package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/money"
)

// Amounts leave the API as fixed-point strings: money at 2 dp, ownership at 6 dp.
func amount(d decimal.Decimal) string {
	return money.Round(d).StringFixed(money.MoneyScale)
}

func pct(d decimal.Decimal) string {
	return money.RoundPct(d).StringFixed(money.PctScale)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// PeriodResponse represents an accounting period
type PeriodResponse struct {
	ID                 string  `json:"id"`
	ClubID             string  `json:"club_id"`
	Year               int     `json:"year"`
	Month              int     `json:"month"`
	Label              string  `json:"label"`
	Status             string  `json:"status"`
	OpeningNAV         string  `json:"opening_nav"`
	ClosingNAV         string  `json:"closing_nav"`
	ReconciliationDiff string  `json:"reconciliation_diff"`
	LockedAt           *string `json:"locked_at,omitempty"`
	ClosedBy           *string `json:"closed_by,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

func toPeriodResponse(p *nav.AccountingPeriod) PeriodResponse {
	resp := PeriodResponse{
		ID:                 p.ID.String(),
		ClubID:             p.ClubID.String(),
		Year:               p.Year,
		Month:              p.Month,
		Label:              p.Label(),
		Status:             string(p.Status),
		OpeningNAV:         amount(p.OpeningNAV),
		ClosingNAV:         amount(p.ClosingNAV),
		ReconciliationDiff: amount(p.ReconciliationDiff),
		CreatedAt:          timestamp(p.CreatedAt),
		UpdatedAt:          timestamp(p.UpdatedAt),
	}
	if p.LockedAt != nil {
		s := timestamp(*p.LockedAt)
		resp.LockedAt = &s
	}
	if p.ClosedBy != nil {
		s := p.ClosedBy.String()
		resp.ClosedBy = &s
	}
	return resp
}

// EntryResponse represents a ledger entry
type EntryResponse struct {
	ID          string  `json:"id"`
	PeriodID    string  `json:"period_id"`
	EntryType   string  `json:"entry_type"`
	Amount      string  `json:"amount"`
	InvestorID  *string `json:"investor_id,omitempty"`
	TxDate      string  `json:"tx_date"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Reference   string  `json:"reference,omitempty"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
}

func toEntryResponse(e *nav.LedgerEntry) EntryResponse {
	resp := EntryResponse{
		ID:          e.ID.String(),
		PeriodID:    e.PeriodID.String(),
		EntryType:   string(e.EntryType),
		Amount:      amount(e.Amount),
		TxDate:      timestamp(e.TxDate),
		Category:    e.Category,
		Description: e.Description,
		Reference:   e.Reference,
		CreatedBy:   e.CreatedBy.String(),
		CreatedAt:   timestamp(e.CreatedAt),
	}
	if e.InvestorID != nil {
		s := e.InvestorID.String()
		resp.InvestorID = &s
	}
	return resp
}

func toEntryResponses(entries []*nav.LedgerEntry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

// BalanceResponse is one investor's row in a preview or snapshot
type BalanceResponse struct {
	InvestorID     string `json:"investor_id"`
	OpeningBalance string `json:"opening_balance"`
	OwnershipPct   string `json:"ownership_pct"`
	IncomeShare    string `json:"income_share"`
	ExpenseShare   string `json:"expense_share"`
	NetAllocation  string `json:"net_allocation"`
	Contributions  string `json:"contributions"`
	Withdrawals    string `json:"withdrawals"`
	Adjustments    string `json:"adjustments"`
	ClosingBalance string `json:"closing_balance"`
}

func toPositionResponses(positions []nav.InvestorPosition) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(positions))
	for _, p := range positions {
		out = append(out, BalanceResponse{
			InvestorID:     p.InvestorID.String(),
			OpeningBalance: amount(p.OpeningBalance),
			OwnershipPct:   pct(p.OwnershipPct),
			IncomeShare:    amount(p.IncomeShare),
			ExpenseShare:   amount(p.ExpenseShare),
			NetAllocation:  amount(p.NetAllocation),
			Contributions:  amount(p.Contributions),
			Withdrawals:    amount(p.Withdrawals),
			Adjustments:    amount(p.Adjustments),
			ClosingBalance: amount(p.ClosingBalance),
		})
	}
	return out
}

func toBalanceResponses(balances []nav.InvestorBalance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, BalanceResponse{
			InvestorID:     b.InvestorID.String(),
			OpeningBalance: amount(b.OpeningBalance),
			OwnershipPct:   pct(b.OwnershipPct),
			IncomeShare:    amount(b.IncomeShare),
			ExpenseShare:   amount(b.ExpenseShare),
			NetAllocation:  amount(b.NetAllocation),
			Contributions:  amount(b.Contributions),
			Withdrawals:    amount(b.Withdrawals),
			Adjustments:    amount(b.Adjustments),
			ClosingBalance: amount(b.ClosingBalance),
		})
	}
	return out
}

// ReconciliationResponse reports whether club NAV ties to investor balances
type ReconciliationResponse struct {
	Reconciled     bool     `json:"reconciled"`
	Mismatch       string   `json:"mismatch"`
	ClubClosingNAV string   `json:"club_closing_nav"`
	InvestorTotal  string   `json:"investor_total"`
	Stamp          string   `json:"stamp"`
	Reasons        []string `json:"reasons"`
}

func toReconciliationResponse(r nav.ReconciliationResult) ReconciliationResponse {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return ReconciliationResponse{
		Reconciled:     r.Reconciled,
		Mismatch:       amount(r.Mismatch),
		ClubClosingNAV: amount(r.ClubClosingNAV),
		InvestorTotal:  amount(r.InvestorTotal),
		Stamp:          r.Stamp,
		Reasons:        reasons,
	}
}

// TotalsResponse holds the club-level sums for a period
type TotalsResponse struct {
	OpeningNAV    string `json:"opening_nav"`
	Contributions string `json:"contributions"`
	Withdrawals   string `json:"withdrawals"`
	Income        string `json:"income"`
	Expenses      string `json:"expenses"`
	Adjustments   string `json:"adjustments"`
	NetResult     string `json:"net_result"`
}

// InsightResponse is an advisory note on a preview
type InsightResponse struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// PreviewResponse is the live, uncommitted view of a period
type PreviewResponse struct {
	Period         PeriodResponse         `json:"period"`
	Totals         TotalsResponse         `json:"totals"`
	Positions      []BalanceResponse      `json:"positions"`
	ClosingNAV     string                 `json:"closing_nav"`
	InvestorTotal  string                 `json:"investor_total"`
	Reconciliation ReconciliationResponse `json:"reconciliation"`
	Insights       []InsightResponse      `json:"insights"`
}

func toPreviewResponse(p *nav.PeriodPreview) PreviewResponse {
	insights := make([]InsightResponse, 0, len(p.Insights))
	for _, in := range p.Insights {
		insights = append(insights, InsightResponse{Code: in.Code, Severity: in.Severity, Message: in.Message})
	}
	return PreviewResponse{
		Period: toPeriodResponse(p.Period),
		Totals: TotalsResponse{
			OpeningNAV:    amount(p.Period.OpeningNAV),
			Contributions: amount(p.Totals.Contributions),
			Withdrawals:   amount(p.Totals.Withdrawals),
			Income:        amount(p.Totals.Income),
			Expenses:      amount(p.Totals.Expenses),
			Adjustments:   amount(p.Totals.Adjustments),
			NetResult:     amount(p.Totals.NetResult()),
		},
		Positions:      toPositionResponses(p.Positions),
		ClosingNAV:     amount(p.ClosingNAV),
		InvestorTotal:  amount(p.InvestorTotal),
		Reconciliation: toReconciliationResponse(p.Reconciliation),
		Insights:       insights,
	}
}

// ChecklistResponse reports each close precondition
type ChecklistResponse struct {
	PeriodID           string   `json:"period_id"`
	HasPositions       bool     `json:"has_positions"`
	HasLedgerEntries   bool     `json:"has_ledger_entries"`
	SubmittedForReview bool     `json:"submitted_for_review"`
	Reconciled         bool     `json:"reconciled"`
	NotAlreadyClosed   bool     `json:"not_already_closed"`
	CanClose           bool     `json:"can_close"`
	Failed             []string `json:"failed"`
	Stamp              string   `json:"stamp"`
	Mismatch           string   `json:"mismatch"`
	Reasons            []string `json:"reasons"`
}

func toChecklistResponse(c *nav.CloseChecklist) ChecklistResponse {
	failed := c.Failed()
	if failed == nil {
		failed = []string{}
	}
	reasons := c.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return ChecklistResponse{
		PeriodID:           c.PeriodID.String(),
		HasPositions:       c.HasPositions,
		HasLedgerEntries:   c.HasLedgerEntries,
		SubmittedForReview: c.SubmittedForReview,
		Reconciled:         c.Reconciled,
		NotAlreadyClosed:   c.NotAlreadyClosed,
		CanClose:           c.CanClose,
		Failed:             failed,
		Stamp:              c.Stamp,
		Mismatch:           amount(c.Mismatch),
		Reasons:            reasons,
	}
}

// SnapshotResponse is the frozen record of a closed period
type SnapshotResponse struct {
	ID                 string            `json:"id"`
	PeriodID           string            `json:"period_id"`
	ClubID             string            `json:"club_id"`
	OpeningNAV         string            `json:"opening_nav"`
	ContributionsTotal string            `json:"contributions_total"`
	WithdrawalsTotal   string            `json:"withdrawals_total"`
	IncomeTotal        string            `json:"income_total"`
	ExpensesTotal      string            `json:"expenses_total"`
	AdjustmentsTotal   string            `json:"adjustments_total"`
	ClosingNAV         string            `json:"closing_nav"`
	InvestorTotal      string            `json:"investor_total"`
	CreatedBy          string            `json:"created_by"`
	CreatedAt          string            `json:"created_at"`
	InvestorBalances   []BalanceResponse `json:"investor_balances"`
}

func toSnapshotResponse(s *nav.NavSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:                 s.ID.String(),
		PeriodID:           s.PeriodID.String(),
		ClubID:             s.ClubID.String(),
		OpeningNAV:         amount(s.OpeningNAV),
		ContributionsTotal: amount(s.ContributionsTotal),
		WithdrawalsTotal:   amount(s.WithdrawalsTotal),
		IncomeTotal:        amount(s.IncomeTotal),
		ExpensesTotal:      amount(s.ExpensesTotal),
		AdjustmentsTotal:   amount(s.AdjustmentsTotal),
		ClosingNAV:         amount(s.ClosingNAV),
		InvestorTotal:      amount(s.InvestorTotal),
		CreatedBy:          s.CreatedBy.String(),
		CreatedAt:          timestamp(s.CreatedAt),
		InvestorBalances:   toBalanceResponses(s.InvestorBalances),
	}
}
