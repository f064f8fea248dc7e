// Package cache provides a small Redis-backed read-through cache for member
// statistics. A miss or any Redis error degrades to the database path.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"amicus.org/internal/membership"
)

const defaultTTL = 30 * time.Second

// StatsCache implements membership.StatsCache on Redis.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewStatsCache builds a cache with the given TTL (defaultTTL when zero).
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &StatsCache{client: client, ttl: ttl, prefix: "portal:stats:"}
}

// GetStats reports cached stats for an association, if fresh.
func (c *StatsCache) GetStats(ctx context.Context, associationID string) (membership.Stats, bool) {
	raw, err := c.client.Get(ctx, c.prefix+associationID).Bytes()
	if err != nil {
		return membership.Stats{}, false
	}
	var stats membership.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return membership.Stats{}, false
	}
	return stats, true
}

// SetStats stores stats with the configured TTL. Failures are ignored; the
// cache is an optimization, not a source of truth.
func (c *StatsCache) SetStats(ctx context.Context, associationID string, stats membership.Stats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+associationID, raw, c.ttl).Err()
}
