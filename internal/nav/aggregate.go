package nav

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/money"
)

// ClubTotals are the club-level sums of a period's ledger
type ClubTotals struct {
	Contributions decimal.Decimal
	Withdrawals   decimal.Decimal
	Income        decimal.Decimal
	Expenses      decimal.Decimal
	Adjustments   decimal.Decimal
}

// NetResult is income minus expenses
func (t ClubTotals) NetResult() decimal.Decimal {
	return money.Sub(t.Income, t.Expenses)
}

// ClosingNAV applies the period's movements to the opening NAV
func (t ClubTotals) ClosingNAV(openingNAV decimal.Decimal) decimal.Decimal {
	return money.Round(openingNAV.
		Add(t.Contributions).
		Sub(t.Withdrawals).
		Add(t.Income).
		Sub(t.Expenses).
		Add(t.Adjustments))
}

// InvestorTotals are one investor's direct movements in a period
type InvestorTotals struct {
	Contributions decimal.Decimal
	Withdrawals   decimal.Decimal
	Adjustments   decimal.Decimal
}

// LedgerAggregate is the folded view of a period's ledger
type LedgerAggregate struct {
	Club       ClubTotals
	Investors  map[uuid.UUID]InvestorTotals
	EntryCount int
}

// Aggregate folds ledger entries into club and per-investor totals.
//
// An adjustment naming an investor moves that investor's balance and the club
// adjustments total by its signed amount. An adjustment with no investor is a
// club-level gain or loss: positive amounts count as income and negative amounts
// as expenses, so they are shared out by ownership.
func Aggregate(entries []*LedgerEntry) LedgerAggregate {
	agg := LedgerAggregate{
		Club: ClubTotals{
			Contributions: money.Zero,
			Withdrawals:   money.Zero,
			Income:        money.Zero,
			Expenses:      money.Zero,
			Adjustments:   money.Zero,
		},
		Investors:  make(map[uuid.UUID]InvestorTotals),
		EntryCount: len(entries),
	}

	bump := func(id *uuid.UUID, fn func(*InvestorTotals)) {
		if id == nil {
			return
		}
		it, ok := agg.Investors[*id]
		if !ok {
			it = InvestorTotals{Contributions: money.Zero, Withdrawals: money.Zero, Adjustments: money.Zero}
		}
		fn(&it)
		agg.Investors[*id] = it
	}

	for _, e := range entries {
		amount := money.Round(e.Amount)

		switch e.EntryType {
		case EntryContribution:
			agg.Club.Contributions = agg.Club.Contributions.Add(amount)
			bump(e.InvestorID, func(it *InvestorTotals) { it.Contributions = it.Contributions.Add(amount) })
		case EntryWithdrawal:
			agg.Club.Withdrawals = agg.Club.Withdrawals.Add(amount)
			bump(e.InvestorID, func(it *InvestorTotals) { it.Withdrawals = it.Withdrawals.Add(amount) })
		case EntryIncome:
			agg.Club.Income = agg.Club.Income.Add(amount)
		case EntryExpense:
			agg.Club.Expenses = agg.Club.Expenses.Add(amount)
		case EntryAdjustment:
			if e.InvestorID != nil {
				agg.Club.Adjustments = agg.Club.Adjustments.Add(amount)
				bump(e.InvestorID, func(it *InvestorTotals) { it.Adjustments = it.Adjustments.Add(amount) })
			} else if amount.IsNegative() {
				agg.Club.Expenses = agg.Club.Expenses.Add(amount.Neg())
			} else {
				agg.Club.Income = agg.Club.Income.Add(amount)
			}
		}
	}

	return agg
}
