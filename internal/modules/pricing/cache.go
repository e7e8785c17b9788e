// README: Redis read-through cache for the pricing snapshot.
package pricing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotKey holds the JSON-encoded Snapshot.
const SnapshotKey = "pricing:snapshot"

type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(redis *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: redis, ttl: ttl}
}

// Get returns the cached snapshot and whether it was present.
func (c *Cache) Get(ctx context.Context) (Snapshot, bool, error) {
	val, err := c.redis.Get(ctx, SnapshotKey).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (c *Cache) Set(ctx context.Context, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, SnapshotKey, b, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, SnapshotKey).Err()
}
