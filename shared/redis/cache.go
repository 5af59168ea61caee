package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/eaglebank/digibank/shared/logger"
)

// ViewCache is a JSON-backed Redis cache for one read model type. A zero TTL
// stores keys without expiry.
type ViewCache[T any] struct {
	client goredis.Cmdable
	ttl    time.Duration
	log    *logger.Logger
}

func NewViewCache[T any](client goredis.Cmdable, ttl time.Duration, log *logger.Logger) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl, log: log.With("component", "ViewCache")}
}

// Get returns (nil, false) on a miss, a Redis error or a value that no longer
// decodes.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.Warn("cache entry undecodable", "key", key, "error", err)
		return nil, false
	}
	return &v, true
}

// Set stores value under key. A failed write is logged, not returned.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

// Delete removes key. Unlike Get and Set, failures are returned.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}
