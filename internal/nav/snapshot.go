package nav

import (
	"time"

	"github.com/google/uuid"
)

// BuildSnapshot freezes an allocation into the immutable close records
func BuildSnapshot(period *AccountingPeriod, alloc *Allocation, actor uuid.UUID, now time.Time) (*NavSnapshot, []InvestorBalance) {
	snap := &NavSnapshot{
		ID:                 uuid.New(),
		TenantID:           period.TenantID,
		ClubID:             period.ClubID,
		PeriodID:           period.ID,
		OpeningNAV:         alloc.OpeningNAV,
		ContributionsTotal: alloc.Totals.Contributions,
		WithdrawalsTotal:   alloc.Totals.Withdrawals,
		IncomeTotal:        alloc.Totals.Income,
		ExpensesTotal:      alloc.Totals.Expenses,
		AdjustmentsTotal:   alloc.Totals.Adjustments,
		ClosingNAV:         alloc.ClosingNAV,
		InvestorTotal:      alloc.InvestorTotal,
		CreatedBy:          actor,
		CreatedAt:          now,
	}

	balances := make([]InvestorBalance, 0, len(alloc.Positions))
	for _, p := range alloc.Positions {
		balances = append(balances, InvestorBalance{
			SnapshotID:     snap.ID,
			PeriodID:       period.ID,
			InvestorID:     p.InvestorID,
			OpeningBalance: p.OpeningBalance,
			OwnershipPct:   p.OwnershipPct,
			IncomeShare:    p.IncomeShare,
			ExpenseShare:   p.ExpenseShare,
			NetAllocation:  p.NetAllocation,
			Contributions:  p.Contributions,
			Withdrawals:    p.Withdrawals,
			Adjustments:    p.Adjustments,
			ClosingBalance: p.ClosingBalance,
		})
	}
	snap.InvestorBalances = balances

	return snap, balances
}
