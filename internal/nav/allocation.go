package nav

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/money"
)

// Allocation is the result of distributing a period's movements across investors
type Allocation struct {
	OpeningNAV    decimal.Decimal
	OpeningsTotal decimal.Decimal
	Totals        ClubTotals
	Positions     []InvestorPosition
	ClosingNAV    decimal.Decimal
	InvestorTotal decimal.Decimal
}

// OpeningsBalanced reports whether investor openings sum to the club opening NAV
func (a *Allocation) OpeningsBalanced() bool {
	return a.OpeningsTotal.Equal(a.OpeningNAV)
}

// Allocate computes every investor's position for the period.
//
// Ownership comes from opening balances only; contributions and withdrawals made
// during the period do not change it. Investors who only appear in the ledger get
// a zero opening and therefore zero ownership. Positions are ordered by investor ID.
// The club closing NAV is computed from the aggregate, never from investor rows.
func Allocate(openingNAV decimal.Decimal, openings []OpeningPosition, agg LedgerAggregate) *Allocation {
	openingNAV = money.Round(openingNAV)

	opening := make(map[uuid.UUID]decimal.Decimal, len(openings))
	openingsTotal := money.Zero
	for _, op := range openings {
		bal := money.Round(op.OpeningBalance)
		opening[op.InvestorID] = opening[op.InvestorID].Add(bal)
		openingsTotal = openingsTotal.Add(bal)
	}

	ids := make([]uuid.UUID, 0, len(opening)+len(agg.Investors))
	for id := range opening {
		ids = append(ids, id)
	}
	for id := range agg.Investors {
		if _, ok := opening[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, compareIDs)

	positions := make([]InvestorPosition, 0, len(ids))
	for _, id := range ids {
		bal, ok := opening[id]
		if !ok {
			bal = money.Zero
		}
		pct := money.Ratio(bal, openingNAV)
		positions = append(positions, InvestorPosition{
			InvestorID:     id,
			OpeningBalance: bal,
			OwnershipPct:   pct,
			IncomeShare:    money.Share(agg.Club.Income, pct),
			ExpenseShare:   money.Share(agg.Club.Expenses, pct),
		})
	}

	// With balanced openings the shares must add up to the totals exactly; the
	// last investor holding ownership absorbs the rounding residue.
	if openingsTotal.Equal(openingNAV) && !openingNAV.IsZero() {
		applyResidual(positions, agg.Club.Income, agg.Club.Expenses)
	}

	investorTotal := money.Zero
	for i := range positions {
		p := &positions[i]
		it, ok := agg.Investors[p.InvestorID]
		if !ok {
			it = InvestorTotals{Contributions: money.Zero, Withdrawals: money.Zero, Adjustments: money.Zero}
		}
		p.Contributions = money.Round(it.Contributions)
		p.Withdrawals = money.Round(it.Withdrawals)
		p.Adjustments = money.Round(it.Adjustments)
		p.NetAllocation = money.Sub(p.IncomeShare, p.ExpenseShare)
		p.ClosingBalance = money.Round(p.OpeningBalance.
			Add(p.NetAllocation).
			Add(p.Contributions).
			Sub(p.Withdrawals).
			Add(p.Adjustments))
		investorTotal = investorTotal.Add(p.ClosingBalance)
	}

	return &Allocation{
		OpeningNAV:    openingNAV,
		OpeningsTotal: money.Round(openingsTotal),
		Totals:        agg.Club,
		Positions:     positions,
		ClosingNAV:    agg.Club.ClosingNAV(openingNAV),
		InvestorTotal: money.Round(investorTotal),
	}
}

func applyResidual(positions []InvestorPosition, income, expenses decimal.Decimal) {
	last := -1
	for i := range positions {
		if !positions[i].OwnershipPct.IsZero() {
			last = i
		}
	}
	if last < 0 {
		return
	}

	incomeRest, expenseRest := money.Round(income), money.Round(expenses)
	for i := range positions {
		if i == last {
			continue
		}
		incomeRest = incomeRest.Sub(positions[i].IncomeShare)
		expenseRest = expenseRest.Sub(positions[i].ExpenseShare)
	}
	positions[last].IncomeShare = money.Round(incomeRest)
	positions[last].ExpenseShare = money.Round(expenseRest)
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

func sortOpenings(openings []OpeningPosition) {
	slices.SortFunc(openings, func(a, b OpeningPosition) int {
		return compareIDs(a.InvestorID, b.InvestorID)
	})
}
