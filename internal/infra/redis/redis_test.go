package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testSnapshot() *nav.NavSnapshot {
	periodID := uuid.New()
	snapID := uuid.New()
	return &nav.NavSnapshot{
		ID:            snapID,
		TenantID:      uuid.New(),
		ClubID:        uuid.New(),
		PeriodID:      periodID,
		OpeningNAV:    decimal.RequireFromString("1000.00"),
		IncomeTotal:   decimal.RequireFromString("100.00"),
		ExpensesTotal: decimal.RequireFromString("20.00"),
		ClosingNAV:    decimal.RequireFromString("1080.00"),
		InvestorTotal: decimal.RequireFromString("1080.00"),
		CreatedAt:     time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		InvestorBalances: []nav.InvestorBalance{{
			SnapshotID:     snapID,
			PeriodID:       periodID,
			InvestorID:     uuid.New(),
			OwnershipPct:   decimal.RequireFromString("1.000000"),
			ClosingBalance: decimal.RequireFromString("1080.00"),
		}},
	}
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = NewClient(context.Background(), "not a url", "")
	assert.Error(t, err)
}

func TestSnapshotCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	cache := NewSnapshotCache(client, time.Hour, logger.Discard())
	snap := testSnapshot()

	got, err := cache.Get(ctx, snap.PeriodID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, snap))

	got, err = cache.Get(ctx, snap.PeriodID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.ID, got.ID)
	assert.True(t, got.ClosingNAV.Equal(snap.ClosingNAV))
	assert.True(t, got.CreatedAt.Equal(snap.CreatedAt))
	require.Len(t, got.InvestorBalances, 1)
	assert.True(t, got.InvestorBalances[0].OwnershipPct.Equal(decimal.NewFromInt(1)))
}

func TestSnapshotCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	cache := NewSnapshotCache(client, time.Minute, logger.Discard())
	snap := testSnapshot()

	require.NoError(t, cache.Set(ctx, snap))
	assert.Equal(t, time.Minute, mr.TTL(snapshotKey(snap.PeriodID)))

	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, snap.PeriodID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotCache_DefaultTTLAndDelete(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	cache := NewSnapshotCache(client, 0, logger.Discard())
	snap := testSnapshot()

	require.NoError(t, cache.Set(ctx, snap))
	assert.Equal(t, DefaultSnapshotTTL, mr.TTL(snapshotKey(snap.PeriodID)))

	require.NoError(t, cache.Delete(ctx, snap.PeriodID))
	assert.False(t, mr.Exists(snapshotKey(snap.PeriodID)))
}

func TestSnapshotCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	cache := NewSnapshotCache(client, time.Hour, logger.Discard())
	periodID := uuid.New()

	require.NoError(t, mr.Set(snapshotKey(periodID), "{not json"))

	_, err := cache.Get(ctx, periodID)
	assert.Error(t, err)
}

func TestSnapshotCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	cache := NewSnapshotCache(client, time.Hour, logger.Discard())
	mr.Close()

	_, err := cache.Get(ctx, uuid.New())
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, testSnapshot()))
}

func TestEventStream_Emit(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	sink := NewEventStream(client, "navcore:audit")

	entity := uuid.New()
	event := nav.Event{
		Type:       nav.EventPeriodClosed,
		TenantID:   uuid.New(),
		ClubID:     uuid.New(),
		PeriodID:   uuid.New(),
		ActorID:    uuid.New(),
		EntityID:   &entity,
		OccurredAt: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		Data:       map[string]string{"closing_nav": "1080.00"},
	}
	require.NoError(t, sink.Emit(ctx, event))
	require.NoError(t, sink.Emit(ctx, nav.Event{Type: nav.EventPeriodOpened}))

	entries, err := client.XRange(ctx, "navcore:audit", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0].Values
	assert.Equal(t, string(nav.EventPeriodClosed), first["type"])
	assert.Equal(t, event.PeriodID.String(), first["period_id"])
	assert.Equal(t, entity.String(), first["entity_id"])
	assert.Equal(t, "2025-02-01T09:00:00Z", first["occurred_at"])

	var data map[string]string
	require.NoError(t, json.Unmarshal([]byte(first["data"].(string)), &data))
	assert.Equal(t, "1080.00", data["closing_nav"])

	_, hasEntity := entries[1].Values["entity_id"]
	assert.False(t, hasEntity)

	mr.Close()
	assert.Error(t, sink.Emit(ctx, event))
}
