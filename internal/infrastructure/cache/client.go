// Package cache provides Redis-backed stores with in-memory fallbacks for
// webhook idempotency and lookup caching.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/config"
)

// Key prefixes
const (
	webhookKeyPrefix = "tienda:webhook:"
	cacheKeyPrefix   = "tienda:cache:"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Stores bundles the stores backed by one Redis connection, or their
// in-memory counterparts when Redis is disabled or unreachable.
type Stores struct {
	Redis       *redis.Client // nil when running in memory
	Idempotency shared.IdempotencyStore
	Cache       Cache
}

// NewStores creates the stores. When Redis is enabled but unreachable the
// in-memory stores are used unless allowFallback is false.
func NewStores(cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (*Stores, error) {
	if cfg.Enabled {
		client, err := NewRedisClient(cfg)
		if err == nil {
			logger.Info("Using Redis stores", zap.String("addr", cfg.Addr()))
			return &Stores{
				Redis:       client,
				Idempotency: NewRedisIdempotencyStore(client, webhookKeyPrefix),
				Cache:       NewRedisCache(client, cacheKeyPrefix),
			}, nil
		}
		if !allowFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Webhook deduplication is not shared across instances.",
			zap.Error(err))
	}

	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Cache:       NewInMemoryCache(),
	}, nil
}

// Close releases the stores and the Redis connection
func (s *Stores) Close() error {
	if s.Redis != nil {
		return s.Redis.Close()
	}
	_ = s.Idempotency.Close()
	return s.Cache.Close()
}
