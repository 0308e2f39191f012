package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

const (
	// DefaultSnapshotTTL bounds how long a closed period's snapshot stays cached
	DefaultSnapshotTTL = 24 * time.Hour

	// SnapshotKeyPrefix is the prefix for snapshot cache keys
	SnapshotKeyPrefix = "navcore:snapshot:"
)

// SnapshotCache is a read-through cache of closed-period snapshots.
// Snapshots never change once written, so entries only expire by TTL.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

var _ nav.SnapshotCache = (*SnapshotCache)(nil)

// NewSnapshotCache creates a snapshot cache; a non-positive ttl uses DefaultSnapshotTTL
func NewSnapshotCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "snapshot_cache"),
	}
}

type cachedSnapshot struct {
	Snapshot *nav.NavSnapshot `json:"snapshot"`
	CachedAt time.Time        `json:"cached_at"`
}

func snapshotKey(periodID uuid.UUID) string {
	return SnapshotKeyPrefix + periodID.String()
}

// Get returns the cached snapshot for a period, or nil on a miss
func (c *SnapshotCache) Get(ctx context.Context, periodID uuid.UUID) (*nav.NavSnapshot, error) {
	val, err := c.client.Get(ctx, snapshotKey(periodID)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "period_id", periodID)
		return nil, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "period_id", periodID, "error", err)
		return nil, fmt.Errorf("failed to get cached snapshot: %w", err)
	}

	var cached cachedSnapshot
	if err := json.Unmarshal(val, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	if cached.Snapshot == nil || cached.Snapshot.PeriodID != periodID {
		return nil, nil
	}

	c.logger.Debug("cache hit", "period_id", periodID)
	return cached.Snapshot, nil
}

// Set stores a snapshot under its period
func (c *SnapshotCache) Set(ctx context.Context, snap *nav.NavSnapshot) error {
	data, err := json.Marshal(cachedSnapshot{Snapshot: snap, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, snapshotKey(snap.PeriodID), data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "period_id", snap.PeriodID, "error", err)
		return fmt.Errorf("failed to set cached snapshot: %w", err)
	}

	return nil
}

// Delete evicts a period's snapshot
func (c *SnapshotCache) Delete(ctx context.Context, periodID uuid.UUID) error {
	return c.client.Del(ctx, snapshotKey(periodID)).Err()
}
