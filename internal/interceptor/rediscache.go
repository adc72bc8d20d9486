package interceptor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by Redis, letting cached responses survive
// process restarts and be shared across client instances.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing Redis client. Keys are namespaced with
// prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get returns the cached value for key, or ErrCacheMiss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis cache get %q: %w", key, err)
	}
	return v, nil
}

// Set stores value under key for ttl.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set %q: %w", key, err)
	}
	return nil
}
