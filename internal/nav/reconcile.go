package nav

import (
	"fmt"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/money"
)

// DefaultCurrency is used in stamps when no currency is configured
const DefaultCurrency = "UGX"

// StampReconciled is the stamp of a period whose NAV ties out exactly
const StampReconciled = "Reconciled"

// Reconcile compares the club closing NAV with the sum of investor closing balances.
// Reconciled is true only for an exact zero mismatch. Reasons are diagnostics and
// never change the outcome.
func Reconcile(alloc *Allocation, currency string) ReconciliationResult {
	if currency == "" {
		currency = DefaultCurrency
	}

	mismatch := money.Sub(alloc.ClosingNAV, alloc.InvestorTotal)
	result := ReconciliationResult{
		Reconciled:     mismatch.IsZero(),
		Mismatch:       mismatch,
		ClubClosingNAV: alloc.ClosingNAV,
		InvestorTotal:  alloc.InvestorTotal,
		Stamp:          StampReconciled,
		Reasons:        []string{},
	}

	if !result.Reconciled {
		result.Stamp = fmt.Sprintf("Mismatch %s %s", currency, money.FormatSigned(mismatch))
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"Investor total %s %s differs from closing NAV %s %s by %s %s",
			currency, money.Format(alloc.InvestorTotal),
			currency, money.Format(alloc.ClosingNAV),
			currency, money.Format(mismatch.Abs()),
		))
	}

	if len(alloc.Positions) == 0 {
		result.Reasons = append(result.Reasons, "No investor positions for period")
	}

	if !alloc.OpeningsBalanced() {
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"Investor opening balances sum to %s %s but opening NAV is %s %s",
			currency, money.Format(alloc.OpeningsTotal),
			currency, money.Format(alloc.OpeningNAV),
		))
	}

	if alloc.OpeningNAV.IsZero() && (!alloc.Totals.Income.IsZero() || !alloc.Totals.Expenses.IsZero()) {
		result.Reasons = append(result.Reasons, "Income and expenses cannot be allocated while opening NAV is zero")
	}

	for _, p := range alloc.Positions {
		if p.OwnershipPct.IsNegative() {
			result.Reasons = append(result.Reasons, fmt.Sprintf("Negative ownership for investor %s", p.InvestorID))
		}
		if p.ClosingBalance.IsNegative() {
			result.Reasons = append(result.Reasons, fmt.Sprintf(
				"Negative closing balance %s %s for investor %s",
				currency, money.Format(p.ClosingBalance), p.InvestorID,
			))
		}
	}

	return result
}
