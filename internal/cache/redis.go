// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modikodi/bridge/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Name     string // metrics label; empty disables lookup metrics
	Addr     string // host:port
	Password string
	DB       int
	Prefix   string // key namespace, e.g. "mkbridge:meta:"
}

// RedisStore is a JSON-encoded, Redis-backed counterpart of Store.
// Expiry is delegated to Redis key TTLs, so it needs no janitor.
type RedisStore[V any] struct {
	client *redis.Client
	name   string
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore[V any](cfg RedisConfig, ttl time.Duration, logger zerolog.Logger) (*RedisStore[V], error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Str("prefix", cfg.Prefix).
		Msg("connected to Redis cache")

	return newRedisStoreWithClient[V](client, cfg.Name, cfg.Prefix, ttl, logger), nil
}

func newRedisStoreWithClient[V any](client *redis.Client, name, prefix string, ttl time.Duration, logger zerolog.Logger) *RedisStore[V] {
	return &RedisStore[V]{
		client: client,
		name:   name,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the decoded value for key. Redis errors are logged and reported as misses.
func (c *RedisStore[V]) Get(key string) (V, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, ok := c.get(ctx, key)
	if c.name != "" {
		metrics.RecordStoreLookup(c.name, ok)
	}
	return v, ok
}

func (c *RedisStore[V]) get(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return zero, false
	}

	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("json unmarshal failed")
		return zero, false
	}
	return v, true
}

// Set stores value under key with the store TTL.
func (c *RedisStore[V]) Set(key string, value V) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("json marshal failed")
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Close closes the Redis connection.
func (c *RedisStore[V]) Close() error {
	return c.client.Close()
}

// HealthCheck pings Redis.
func (c *RedisStore[V]) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
