package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a Cache backed by a shared redis instance. Values are raw
// bytes; callers own the encoding. Used for working-status snapshots when
// several API replicas serve the same organisation.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get returns the cached bytes for key, or a miss on any redis error.
func (c *RedisCache) Get(key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores bytes under key with the provided TTL. Errors are dropped; the
// cache is advisory and the ledger stays the source of truth.
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_ = c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a cached entry.
func (c *RedisCache) Delete(key string) {
	if c == nil || c.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_ = c.client.Del(ctx, c.prefix+key).Err()
}

var _ Cache[string, []byte] = (*RedisCache)(nil)
