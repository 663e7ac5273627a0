package augment

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Grounded on internal/store's NewRedisCheckpointStore: same
// addr-string construction and ping-on-construct idiom, adapted here to
// a prefixed key/value cache rather than a RunID-keyed object store.

type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to addr and pings it before returning, so a
// misconfigured address surfaces at startup rather than on the first
// augmentation call. ttl of zero means no expiry.
func NewRedisCache(addr, prefix string, ttl time.Duration) (Cache, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &redisCache{client: c, prefix: prefix, ttl: ttl}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key, value string) {
	// Best-effort: a cache write failure just means the next call
	// recomputes the augmentation instead of reusing a stale miss.
	_ = c.client.Set(ctx, c.prefix+key, value, c.ttl).Err()
}
