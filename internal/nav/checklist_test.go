package nav

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func reviewedAllocation() (*AccountingPeriod, *Allocation, ReconciliationResult) {
	ids := orderedIDs(1)
	period := &AccountingPeriod{ID: uuid.New(), Status: StatusReview, OpeningNAV: dec("1000")}
	alloc := Allocate(period.OpeningNAV, openingsFor(ids, "1000"), Aggregate([]*LedgerEntry{entry(EntryIncome, "10", nil)}))
	return period, alloc, Reconcile(alloc, "")
}

func TestBuildChecklist_AllPass(t *testing.T) {
	period, alloc, recon := reviewedAllocation()

	c := BuildChecklist(period, 1, alloc, recon)

	assert.True(t, c.CanClose)
	assert.Empty(t, c.Failed())
	assert.Equal(t, StampReconciled, c.Stamp)
}

func TestBuildChecklist_Draft(t *testing.T) {
	period, alloc, recon := reviewedAllocation()
	period.Status = StatusDraft

	c := BuildChecklist(period, 1, alloc, recon)

	assert.False(t, c.CanClose)
	assert.Equal(t, []string{"submitted_for_review"}, c.Failed())
}

func TestBuildChecklist_Closed(t *testing.T) {
	period, alloc, recon := reviewedAllocation()
	period.Status = StatusClosed

	c := BuildChecklist(period, 1, alloc, recon)

	assert.False(t, c.CanClose)
	assert.Equal(t, []string{"submitted_for_review", "not_already_closed"}, c.Failed())
}

func TestBuildChecklist_NoEntriesNoPositions(t *testing.T) {
	period := &AccountingPeriod{ID: uuid.New(), Status: StatusReview}
	alloc := Allocate(dec("0"), nil, Aggregate(nil))

	c := BuildChecklist(period, 0, alloc, Reconcile(alloc, ""))

	assert.False(t, c.CanClose)
	assert.Equal(t, []string{"has_positions", "has_ledger_entries"}, c.Failed())
}

func TestBuildSnapshot_FreezesPositions(t *testing.T) {
	period, alloc, _ := reviewedAllocation()
	actor := uuid.New()

	snap, balances := BuildSnapshot(period, alloc, actor, period.CreatedAt)

	assert.Equal(t, period.ID, snap.PeriodID)
	assert.Equal(t, actor, snap.CreatedBy)
	assert.True(t, snap.ClosingNAV.Equal(dec("1010")))
	assert.True(t, snap.InvestorTotal.Equal(snap.ClosingNAV))
	assert.Len(t, balances, 1)
	assert.Equal(t, snap.ID, balances[0].SnapshotID)
	assert.True(t, balances[0].ClosingBalance.Equal(dec("1010")))
	assert.Equal(t, balances, snap.InvestorBalances)
}
