//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Isaac25-lgtm/navcore-platform/internal/infra/postgres"
	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
	"github.com/Isaac25-lgtm/navcore-platform/testutil/testdb"
)

var testDB *testdb.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = testdb.NewTestDB(ctx)
	if err != nil {
		panic("failed to create test database: " + err.Error())
	}

	code := m.Run()

	testDB.Close(ctx)
	if code != 0 {
		panic("tests failed")
	}
}

func setupTest(t *testing.T) (*postgres.NavRepository, context.Context) {
	ctx := context.Background()
	require.NoError(t, testDB.Reset(ctx))
	return postgres.NewNavRepository(testDB.Pool), ctx
}

func createInvestor(t *testing.T, ctx context.Context, repo *postgres.NavRepository, clubID uuid.UUID) uuid.UUID {
	id := uuid.New()
	require.NoError(t, repo.CreateInvestor(ctx, &nav.Investor{ID: id, ClubID: clubID, Name: "inv-" + id.String()[:8], Active: true}))
	return id
}

func newPeriod(clubID uuid.UUID, year, month int) *nav.AccountingPeriod {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &nav.AccountingPeriod{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		ClubID:     clubID,
		Year:       year,
		Month:      month,
		Status:     nav.StatusDraft,
		OpeningNAV: decimal.RequireFromString("1000.00"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestNavRepository_PeriodRoundTrip(t *testing.T) {
	repo, ctx := setupTest(t)
	club := uuid.New()
	p := newPeriod(club, 2025, 1)

	require.NoError(t, repo.CreatePeriod(ctx, p))

	got, err := repo.GetPeriod(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ClubID, got.ClubID)
	assert.Equal(t, nav.StatusDraft, got.Status)
	assert.True(t, got.OpeningNAV.Equal(p.OpeningNAV))
	assert.Nil(t, got.LockedAt)
	assert.Nil(t, got.ClosedBy)

	assert.ErrorIs(t, repo.CreatePeriod(ctx, newPeriod(club, 2025, 1)), nav.ErrDuplicatePeriod)

	_, err = repo.GetPeriod(ctx, uuid.New())
	assert.ErrorIs(t, err, nav.ErrNotFound)
}

func TestNavRepository_ListPeriodsMostRecentFirst(t *testing.T) {
	repo, ctx := setupTest(t)
	club := uuid.New()
	for _, m := range []int{3, 12, 7} {
		require.NoError(t, repo.CreatePeriod(ctx, newPeriod(club, 2024, m)))
	}
	require.NoError(t, repo.CreatePeriod(ctx, newPeriod(club, 2025, 1)))
	require.NoError(t, repo.CreatePeriod(ctx, newPeriod(uuid.New(), 2026, 1)))

	periods, err := repo.ListPeriods(ctx, club)
	require.NoError(t, err)
	require.Len(t, periods, 4)
	assert.Equal(t, "2025-01", periods[0].Label())
	assert.Equal(t, "2024-12", periods[1].Label())
	assert.Equal(t, "2024-03", periods[3].Label())
}

func TestNavRepository_LockPeriodRequiresTx(t *testing.T) {
	repo, ctx := setupTest(t)
	p := newPeriod(uuid.New(), 2025, 1)
	require.NoError(t, repo.CreatePeriod(ctx, p))

	_, err := repo.LockPeriod(ctx, p.ID)
	assert.ErrorIs(t, err, nav.ErrNoTx)

	txCtx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer repo.RollbackTx(txCtx)

	locked, err := repo.LockPeriod(txCtx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, locked.ID)

	_, err = repo.BeginTx(txCtx)
	assert.ErrorIs(t, err, nav.ErrTxAlreadyStarted)
}

func TestNavRepository_RollbackDiscardsWrites(t *testing.T) {
	repo, ctx := setupTest(t)
	p := newPeriod(uuid.New(), 2025, 1)

	txCtx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreatePeriod(txCtx, p))
	require.NoError(t, repo.RollbackTx(txCtx))

	_, err = repo.GetPeriod(ctx, p.ID)
	assert.ErrorIs(t, err, nav.ErrNotFound)

	// Second rollback hits a closed tx and is ignored.
	assert.NoError(t, repo.RollbackTx(txCtx))
}

func TestNavRepository_OpeningPositionsAndEntries(t *testing.T) {
	repo, ctx := setupTest(t)
	club := uuid.New()
	alice := createInvestor(t, ctx, repo, club)
	p := newPeriod(club, 2025, 1)
	require.NoError(t, repo.CreatePeriod(ctx, p))

	require.NoError(t, repo.InsertOpeningPositions(ctx, []nav.OpeningPosition{
		{PeriodID: p.ID, InvestorID: alice, OpeningBalance: decimal.RequireFromString("1000.00")},
	}))
	openings, err := repo.ListOpeningPositions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, openings, 1)
	assert.Equal(t, "1000", openings[0].OpeningBalance.String())

	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	income := &nav.LedgerEntry{
		ID: uuid.New(), TenantID: p.TenantID, ClubID: club, PeriodID: p.ID,
		EntryType: nav.EntryIncome, Amount: decimal.RequireFromString("12.35"),
		TxDate: day.AddDate(0, 0, 2), CreatedBy: uuid.New(), CreatedAt: day,
	}
	contribution := &nav.LedgerEntry{
		ID: uuid.New(), TenantID: p.TenantID, ClubID: club, PeriodID: p.ID,
		EntryType: nav.EntryContribution, Amount: decimal.RequireFromString("50"),
		InvestorID: &alice, TxDate: day, Category: "dues", CreatedBy: uuid.New(), CreatedAt: day,
	}
	require.NoError(t, repo.CreateEntry(ctx, income))
	require.NoError(t, repo.CreateEntry(ctx, contribution))

	entries, err := repo.ListEntries(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, contribution.ID, entries[0].ID)
	require.NotNil(t, entries[0].InvestorID)
	assert.Equal(t, alice, *entries[0].InvestorID)
	assert.Nil(t, entries[1].InvestorID)
	assert.True(t, entries[1].Amount.Equal(decimal.RequireFromString("12.35")))

	income.Amount = decimal.RequireFromString("20")
	require.NoError(t, repo.UpdateEntry(ctx, income))
	got, err := repo.GetEntry(ctx, income.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(20)))

	require.NoError(t, repo.DeleteEntry(ctx, income.ID))
	assert.ErrorIs(t, repo.DeleteEntry(ctx, income.ID), nav.ErrNotFound)
}

func TestNavRepository_SnapshotIsWriteOnce(t *testing.T) {
	repo, ctx := setupTest(t)
	club := uuid.New()
	alice := createInvestor(t, ctx, repo, club)
	p := newPeriod(club, 2025, 1)
	require.NoError(t, repo.CreatePeriod(ctx, p))

	snap := &nav.NavSnapshot{
		ID: uuid.New(), TenantID: p.TenantID, ClubID: club, PeriodID: p.ID,
		OpeningNAV: decimal.NewFromInt(1000), ClosingNAV: decimal.NewFromInt(1000),
		InvestorTotal: decimal.NewFromInt(1000), CreatedBy: uuid.New(), CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.InsertSnapshot(ctx, snap))
	require.NoError(t, repo.InsertInvestorBalances(ctx, []nav.InvestorBalance{{
		SnapshotID: snap.ID, PeriodID: p.ID, InvestorID: alice,
		OpeningBalance: decimal.NewFromInt(1000), OwnershipPct: decimal.RequireFromString("1.000000"),
		ClosingBalance: decimal.NewFromInt(1000),
	}}))

	dup := *snap
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.InsertSnapshot(ctx, &dup), nav.ErrSnapshotExists)

	got, err := repo.GetSnapshotByPeriod(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	require.Len(t, got.InvestorBalances, 1)
	assert.True(t, got.InvestorBalances[0].OwnershipPct.Equal(decimal.NewFromInt(1)))

	_, err = testDB.Pool.Exec(ctx, `UPDATE nav_snapshots SET closing_nav = 0 WHERE id = $1`, snap.ID)
	assert.Error(t, err, "snapshot rows must reject updates")
	_, err = testDB.Pool.Exec(ctx, `DELETE FROM investor_balances WHERE snapshot_id = $1`, snap.ID)
	assert.Error(t, err, "balance rows must reject deletes")

	_, err = repo.GetSnapshotByPeriod(ctx, uuid.New())
	assert.ErrorIs(t, err, nav.ErrNotFound)
}

func TestNavRepository_ServiceCloseAgainstPostgres(t *testing.T) {
	repo, ctx := setupTest(t)
	scope := nav.Scope{TenantID: uuid.New(), ClubID: uuid.New(), ActorID: uuid.New()}
	a := createInvestor(t, ctx, repo, scope.ClubID)
	b := createInvestor(t, ctx, repo, scope.ClubID)
	svc := nav.NewService(repo, logger.Discard())

	period, err := svc.OpenPeriod(ctx, scope, nav.OpenPeriodInput{
		Year:  2025,
		Month: 1,
		Openings: []nav.OpeningInput{
			{InvestorID: a, OpeningBalance: decimal.NewFromInt(600)},
			{InvestorID: b, OpeningBalance: decimal.NewFromInt(400)},
		},
	})
	require.NoError(t, err)

	_, err = svc.PostEntry(ctx, scope, period.ID, nav.EntryInput{EntryType: nav.EntryIncome, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = svc.PostEntry(ctx, scope, period.ID, nav.EntryInput{EntryType: nav.EntryExpense, Amount: decimal.NewFromInt(20)})
	require.NoError(t, err)
	_, err = svc.SubmitForReview(ctx, scope, period.ID)
	require.NoError(t, err)

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ClosePeriod(ctx, scope, period.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)

	snap, err := svc.GetSnapshot(ctx, scope, period.ID)
	require.NoError(t, err)
	assert.Equal(t, "1080", snap.ClosingNAV.String())
	assert.True(t, snap.ClosingNAV.Equal(snap.InvestorTotal))
	require.Len(t, snap.InvestorBalances, 2)

	closed, err := svc.GetPeriod(ctx, scope, period.ID)
	require.NoError(t, err)
	assert.Equal(t, nav.StatusClosed, closed.Status)
	require.NotNil(t, closed.LockedAt)

	_, err = svc.PostEntry(ctx, scope, period.ID, nav.EntryInput{EntryType: nav.EntryIncome, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, nav.ErrPeriodClosed)
}
