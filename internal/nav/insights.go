package nav

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/money"
)

var expenseRatioThreshold = decimal.NewFromInt(2)

// BuildInsights flags notable facts about a period preview
func BuildInsights(alloc *Allocation, recon ReconciliationResult, currency string) []Insight {
	if currency == "" {
		currency = DefaultCurrency
	}
	insights := []Insight{}

	if alloc.Totals.Expenses.IsPositive() && alloc.OpeningNAV.IsPositive() {
		ratio := alloc.Totals.Expenses.Div(alloc.OpeningNAV).Mul(decimal.NewFromInt(100))
		if ratio.GreaterThan(expenseRatioThreshold) {
			insights = append(insights, Insight{
				Code:     "expense-spike",
				Severity: "warning",
				Message:  fmt.Sprintf("Expense ratio is elevated at %s%%", ratio.Round(2).StringFixed(2)),
			})
		}
	}

	if !recon.Reconciled {
		insights = append(insights, Insight{
			Code:     "reconciliation-mismatch",
			Severity: "critical",
			Message:  fmt.Sprintf("Mismatch detected: %s %s", currency, money.Format(recon.Mismatch.Abs())),
		})
	}

	if net := alloc.Totals.NetResult(); net.IsPositive() {
		insights = append(insights, Insight{
			Code:     "net-positive",
			Severity: "info",
			Message:  fmt.Sprintf("Net result is positive at %s %s", currency, money.Format(net)),
		})
	}

	return insights
}
