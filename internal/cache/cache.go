// Package cache is an optional Redis cache for item list reads. It is a
// read-through cache with a short TTL, invalidated on every change event, so
// a stale entry can never outlive the next mutation by more than the TTL.
// All methods are safe on a nil receiver; the server simply runs uncached
// when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"renttrack/internal/model"
	"renttrack/internal/store"
)

const itemsTTL = time.Minute

// ItemsCache caches per-user item lists.
type ItemsCache struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int) (*ItemsCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &ItemsCache{rdb: rdb}, nil
}

func itemsKey(userID int64) string {
	return fmt.Sprintf("items:%d", userID)
}

// Get returns the cached list for a user, if present.
func (c *ItemsCache) Get(ctx context.Context, userID int64) ([]model.Item, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, itemsKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

// Set stores a user's list with the cache TTL. Failures are logged, not
// returned; the cache is best effort.
func (c *ItemsCache) Set(ctx context.Context, userID int64, items []model.Item) {
	if c == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, itemsKey(userID), data, itemsTTL).Err(); err != nil {
		zap.S().Warnw("caching item list", "user", userID, "err", err)
	}
}

// Invalidate drops a user's cached list.
func (c *ItemsCache) Invalidate(ctx context.Context, userID int64) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, itemsKey(userID)).Err(); err != nil {
		zap.S().Warnw("invalidating item list cache", "user", userID, "err", err)
	}
}

// AttachBus invalidates on every item change event.
func (c *ItemsCache) AttachBus(bus EventBus.Bus) error {
	if c == nil {
		return nil
	}
	return bus.Subscribe(store.TopicItemsChanged, func(userID int64) {
		c.Invalidate(context.Background(), userID)
	})
}

// Close releases the Redis connection.
func (c *ItemsCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
