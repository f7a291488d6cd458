package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores opaque values with a TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON reads and decodes a cached value. A value that no longer decodes
// is reported as a miss.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, nil
	}
	return &v, true, nil
}

// SetJSON encodes and stores a value
func SetJSON[T any](ctx context.Context, c Cache, key string, value T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// RedisCache is a Cache on Redis strings
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisCache creates a cache on an existing client
func NewRedisCache(client redis.UniversalClient, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the value for key
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	return raw, true, nil
}

// Set stores value under key for ttl
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyPrefix+key).Err()
}

// Close is a no-op; the shared client is closed by Stores
func (c *RedisCache) Close() error {
	return nil
}

// InMemoryCache is a process-local Cache
type InMemoryCache struct {
	m *ttlMap
}

// NewInMemoryCache creates an in-memory cache swept every minute
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{m: newTTLMap(time.Minute)}
}

// Get returns the value for key
func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.m.get(key)
	return v, ok, nil
}

// Set stores value under key for ttl
func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.m.set(key, value, ttl)
	return nil
}

// Delete removes key
func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.m.delete(key)
	return nil
}

// Close stops the sweeper
func (c *InMemoryCache) Close() error {
	c.m.close()
	return nil
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*InMemoryCache)(nil)
)
