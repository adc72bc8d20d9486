package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DefaultRedisConfig returns sensible defaults for Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{Host: "localhost", Port: 6379}
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Redis is a Store backed by a Redis instance. Keys are namespaced with the
// given prefix so multiple clients can share one database.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed store and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, prefix: prefix}, nil
}

// NewRedisWithClient wraps an existing client, mainly for tests.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get returns the value for key, or ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, nil
}

// Set stores value under key with no expiry.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Client exposes the underlying Redis client for collaborators sharing the
// same connection (e.g. the response cache).
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close releases the underlying connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
