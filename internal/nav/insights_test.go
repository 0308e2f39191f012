package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func insightCodes(insights []Insight) []string {
	codes := make([]string, 0, len(insights))
	for _, i := range insights {
		codes = append(codes, i.Code)
	}
	return codes
}

func TestBuildInsights_ExpenseSpike(t *testing.T) {
	ids := orderedIDs(1)
	alloc := Allocate(dec("1000"), openingsFor(ids, "1000"), Aggregate([]*LedgerEntry{entry(EntryExpense, "30", nil)}))

	insights := BuildInsights(alloc, Reconcile(alloc, ""), "")

	assert.Equal(t, []string{"expense-spike"}, insightCodes(insights))
	assert.Equal(t, "Expense ratio is elevated at 3.00%", insights[0].Message)
}

func TestBuildInsights_ExpenseAtThresholdIsQuiet(t *testing.T) {
	ids := orderedIDs(1)
	alloc := Allocate(dec("1000"), openingsFor(ids, "1000"), Aggregate([]*LedgerEntry{entry(EntryExpense, "20", nil)}))

	assert.Empty(t, BuildInsights(alloc, Reconcile(alloc, ""), ""))
}

func TestBuildInsights_MismatchAndNetPositive(t *testing.T) {
	ids := orderedIDs(1)
	agg := Aggregate([]*LedgerEntry{
		entry(EntryIncome, "100", nil),
		entry(EntryContribution, "5", nil),
	})
	alloc := Allocate(dec("1000"), openingsFor(ids, "1000"), agg)

	insights := BuildInsights(alloc, Reconcile(alloc, ""), "UGX")

	assert.Equal(t, []string{"reconciliation-mismatch", "net-positive"}, insightCodes(insights))
	assert.Equal(t, "Mismatch detected: UGX 5.00", insights[0].Message)
	assert.Equal(t, "Net result is positive at UGX 100.00", insights[1].Message)
}

func TestBuildInsights_ExpenseJustOverThreshold(t *testing.T) {
	ids := orderedIDs(1)
	alloc := Allocate(dec("1000"), openingsFor(ids, "1000"), Aggregate([]*LedgerEntry{entry(EntryExpense, "20.04", nil)}))

	insights := BuildInsights(alloc, Reconcile(alloc, ""), "")

	assert.Equal(t, []string{"expense-spike"}, insightCodes(insights))
	assert.Equal(t, "Expense ratio is elevated at 2.00%", insights[0].Message)
}
