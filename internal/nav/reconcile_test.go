package nav

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile_Balanced(t *testing.T) {
	ids := orderedIDs(1)
	alloc := Allocate(dec("1000"), openingsFor(ids, "1000"), Aggregate([]*LedgerEntry{entry(EntryIncome, "50", nil)}))

	result := Reconcile(alloc, "")

	assert.True(t, result.Reconciled)
	assert.True(t, result.Mismatch.IsZero())
	assert.Equal(t, StampReconciled, result.Stamp)
	assert.Empty(t, result.Reasons)
}

func TestReconcile_MismatchStampCarriesSignedAmount(t *testing.T) {
	ids := orderedIDs(1)
	agg := Aggregate([]*LedgerEntry{entry(EntryContribution, "2500", nil)})
	alloc := Allocate(dec("1000"), openingsFor(ids, "1000"), agg)

	result := Reconcile(alloc, "UGX")

	assert.False(t, result.Reconciled)
	assert.True(t, result.Mismatch.Equal(dec("2500")))
	assert.Equal(t, "Mismatch UGX +2,500.00", result.Stamp)
	assert.NotEmpty(t, result.Reasons)
}

func TestReconcile_NegativeMismatch(t *testing.T) {
	alloc := &Allocation{
		OpeningNAV:    dec("100"),
		OpeningsTotal: dec("100"),
		ClosingNAV:    dec("100"),
		InvestorTotal: dec("100.01"),
		Positions:     []InvestorPosition{{InvestorID: orderedIDs(1)[0], ClosingBalance: dec("100.01")}},
	}

	result := Reconcile(alloc, "KES")

	assert.False(t, result.Reconciled)
	assert.True(t, result.Mismatch.Equal(dec("-0.01")))
	assert.Equal(t, "Mismatch KES -0.01", result.Stamp)
}

func TestReconcile_ReasonsDoNotChangeOutcome(t *testing.T) {
	// No positions at all, but nothing to reconcile either.
	alloc := Allocate(dec("0"), nil, Aggregate(nil))

	result := Reconcile(alloc, "")

	assert.True(t, result.Reconciled)
	assert.Contains(t, result.Reasons, "No investor positions for period")
}

func TestReconcile_DiagnosticReasons(t *testing.T) {
	ids := orderedIDs(2)
	agg := Aggregate([]*LedgerEntry{
		entry(EntryWithdrawal, "500", idPtr(ids[1])),
	})
	alloc := Allocate(dec("1000"), openingsFor(ids, "600", "100"), agg)

	result := Reconcile(alloc, "")

	assert.False(t, result.Reconciled)
	assert.Contains(t, result.Reasons, "Investor opening balances sum to UGX 700.00 but opening NAV is UGX 1,000.00")

	var negative bool
	for _, r := range result.Reasons {
		if strings.HasPrefix(r, "Negative closing balance UGX -400.00") {
			negative = true
		}
	}
	assert.True(t, negative, "reasons: %v", result.Reasons)
}

func TestReconcile_ZeroOpeningNAVWithIncome(t *testing.T) {
	ids := orderedIDs(1)
	agg := Aggregate([]*LedgerEntry{
		entry(EntryContribution, "100", idPtr(ids[0])),
		entry(EntryIncome, "5", nil),
	})

	result := Reconcile(Allocate(dec("0"), nil, agg), "")

	assert.False(t, result.Reconciled)
	assert.Contains(t, result.Reasons, "Income and expenses cannot be allocated while opening NAV is zero")
}
