package nav_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Isaac25-lgtm/navcore-platform/internal/infra/memory"
	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

var fixedNow = time.Date(2025, time.February, 3, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type recordingSink struct {
	mu     sync.Mutex
	events []nav.Event
	err    error
}

func (r *recordingSink) Emit(_ context.Context, event nav.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingSink) types() []nav.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]nav.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type mapCache struct {
	mu    sync.Mutex
	items map[uuid.UUID]*nav.NavSnapshot
	gets  int
}

func (c *mapCache) Get(_ context.Context, periodID uuid.UUID) (*nav.NavSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.items[periodID], nil
}

func (c *mapCache) Set(_ context.Context, snap *nav.NavSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[uuid.UUID]*nav.NavSnapshot)
	}
	c.items[snap.PeriodID] = snap
	return nil
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	svc   *nav.Service
	sink  *recordingSink
	scope nav.Scope
}

func newFixture(t *testing.T, opts ...nav.Option) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, nil, opts...)
}

// newFixtureWithRepo builds the service over repo, or over the fixture's own store when repo is nil
func newFixtureWithRepo(t *testing.T, wrap func(*memory.Store) nav.Repository, opts ...nav.Option) *fixture {
	t.Helper()

	store := memory.NewStore()
	sink := &recordingSink{}

	var repo nav.Repository = store
	if wrap != nil {
		repo = wrap(store)
	}

	opts = append([]nav.Option{
		nav.WithEventSink(sink),
		nav.WithClock(func() time.Time { return fixedNow }),
	}, opts...)

	return &fixture{
		ctx:   context.Background(),
		store: store,
		svc:   nav.NewService(repo, logger.Discard(), opts...),
		sink:  sink,
		scope: nav.Scope{TenantID: uuid.New(), ClubID: uuid.New(), ActorID: uuid.New()},
	}
}

func (f *fixture) addInvestor(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.store.CreateInvestor(f.ctx, &nav.Investor{ID: id, ClubID: f.scope.ClubID, Name: name, Active: true}))
	return id
}

func (f *fixture) open(t *testing.T, year, month int, openings ...nav.OpeningInput) *nav.AccountingPeriod {
	t.Helper()
	period, err := f.svc.OpenPeriod(f.ctx, f.scope, nav.OpenPeriodInput{Year: year, Month: month, Openings: openings})
	require.NoError(t, err)
	return period
}

func (f *fixture) post(t *testing.T, periodID uuid.UUID, entryType nav.EntryType, amount string, investor *uuid.UUID) *nav.LedgerEntry {
	t.Helper()
	entry, err := f.svc.PostEntry(f.ctx, f.scope, periodID, nav.EntryInput{
		EntryType:  entryType,
		Amount:     dec(amount),
		InvestorID: investor,
		TxDate:     fixedNow,
	})
	require.NoError(t, err)
	return entry
}

func (f *fixture) submit(t *testing.T, periodID uuid.UUID) {
	t.Helper()
	_, err := f.svc.SubmitForReview(f.ctx, f.scope, periodID)
	require.NoError(t, err)
}

func opening(id uuid.UUID, amount string) nav.OpeningInput {
	return nav.OpeningInput{InvestorID: id, OpeningBalance: dec(amount)}
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func positionFor(t *testing.T, positions []nav.InvestorPosition, id uuid.UUID) nav.InvestorPosition {
	t.Helper()
	for _, p := range positions {
		if p.InvestorID == id {
			return p
		}
	}
	t.Fatalf("no position for investor %s", id)
	return nav.InvestorPosition{}
}

func stateErr(t *testing.T, err error) *nav.StateError {
	t.Helper()
	var se *nav.StateError
	require.True(t, errors.As(err, &se), "expected StateError, got %v", err)
	return se
}

func uuidFor(i int) uuid.UUID {
	var id uuid.UUID
	id[0] = 0xc1
	id[15] = byte(i + 1)
	return id
}
