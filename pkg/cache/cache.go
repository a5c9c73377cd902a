// Package cache wraps an optional Redis connection. Every helper degrades to
// a no-op (or a miss) when Redis is not configured or not reachable.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/teastall/teastall/config"
)

// RDB is nil when Redis is unavailable.
var RDB *redis.Client

// Connect initialises the Redis client and verifies the connection with a ping.
// An empty REDIS_ADDR leaves the cache disabled without error.
func Connect(ctx context.Context) error {
	addr := config.RedisAddr()
	if addr == "" {
		RDB = nil
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.RedisPassword(),
		DB:       config.Int("REDIS_DB", 0),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		RDB = nil
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	RDB = client
	return nil
}

// Use installs an already-built client; nil disables the cache.
func Use(client *redis.Client) { RDB = client }

// Enabled reports whether a Redis client is configured.
func Enabled() bool { return RDB != nil }

// Close releases the client.
func Close() error {
	if RDB == nil {
		return nil
	}
	err := RDB.Close()
	RDB = nil
	return err
}

// Get retrieves a cached value by key and unmarshals into dest.
// Returns true on a cache hit, false on miss or error.
func Get(ctx context.Context, key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}

	val, err := RDB.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, dest) == nil
}

// Set stores value under key for the given TTL.
func Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if RDB == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return RDB.Set(ctx, key, data, ttl).Err()
}

// Forget removes one or more keys.
func Forget(ctx context.Context, keys ...string) error {
	if RDB == nil || len(keys) == 0 {
		return nil
	}
	return RDB.Del(ctx, keys...).Err()
}

// Remember returns the cached value for key or calls fn and caches its
// result for ttl. Cache errors never fail the call.
func Remember[T any](ctx context.Context, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var cached T
	if Get(ctx, key, &cached) {
		return cached, nil
	}

	v, err := fn()
	if err != nil {
		return v, err
	}
	_ = Set(ctx, key, v, ttl)
	return v, nil
}
