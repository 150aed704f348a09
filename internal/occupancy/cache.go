package occupancy

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studio-slot-reservation/internal/config"
	"github.com/iliyamo/studio-slot-reservation/internal/model"
)

// Cache is a redis-backed store of occupancy counts keyed by physical
// slot.  The TTL is a backstop only; correctness comes from writers
// invalidating keys the moment a booking or cancellation commits.  A nil
// *Cache is valid and disables caching, so callers never branch on
// configuration.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCache builds a Cache from configuration.  Returns nil when the
// cache is disabled or no Redis client is available; a nil Cache is safe
// to use and simply misses every read.
func NewCache(client *redis.Client, cfg config.OccupancyCacheConfig) *Cache {
	if client == nil || !cfg.Enabled {
		return nil
	}
	return &Cache{client: client, ttl: cfg.TTL, prefix: cfg.Prefix}
}

func (c *Cache) keyFor(key model.SlotKey) string {
	return fmt.Sprintf("%s:%s:%s-%s:%s:%s:%d",
		c.prefix, key.Date.Format("2006-01-02"), key.StartTime, key.EndTime,
		key.Room, key.Trainer, key.GroupSize)
}

// Get returns the cached count and whether it was present.  Redis errors
// are treated as misses; the database remains the source of truth.
func (c *Cache) Get(ctx context.Context, key model.SlotKey) (int, bool) {
	if c == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, c.keyFor(key)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores a freshly computed count.  Failures are logged and ignored.
func (c *Cache) Set(ctx context.Context, key model.SlotKey, n int) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, c.keyFor(key), strconv.Itoa(n), c.ttl).Err(); err != nil {
		log.Printf("occupancy cache set failed: %v", err)
	}
}

// Invalidate removes the cached count for a slot.
func (c *Cache) Invalidate(ctx context.Context, key model.SlotKey) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, c.keyFor(key)).Err()
}
