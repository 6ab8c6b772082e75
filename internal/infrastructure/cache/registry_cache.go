// Package cache keeps transition and report template lookups and submission
// keys in Redis, with in-memory fallbacks for single-instance deployments.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRegistryTTL = 5 * time.Minute

// RegistryCache stores JSON-encoded registry entries by key
type RegistryCache interface {
	// Get decodes the entry at key into dst. It reports false on a miss.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores value at key. A zero ttl uses the cache default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisRegistryCache implements RegistryCache using Redis
type RedisRegistryCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisRegistryCacheOption is a functional option for configuring the cache
type RedisRegistryCacheOption func(*RedisRegistryCache)

// WithKeyPrefix sets the prefix put in front of every key
func WithKeyPrefix(prefix string) RedisRegistryCacheOption {
	return func(c *RedisRegistryCache) {
		c.keyPrefix = prefix
	}
}

// WithTTL sets the default entry lifetime
func WithTTL(ttl time.Duration) RedisRegistryCacheOption {
	return func(c *RedisRegistryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisRegistryCacheOption {
	return func(c *RedisRegistryCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRedisRegistryCache creates a cache on an existing Redis client.
// The caller retains ownership of the client.
func NewRedisRegistryCache(client *redis.Client, opts ...RedisRegistryCacheOption) *RedisRegistryCache {
	c := &RedisRegistryCache{
		client:    client,
		keyPrefix: "itam:registry:",
		ttl:       defaultRegistryTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves an entry from cache
func (c *RedisRegistryCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Registry cache miss", zap.String("key", key))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Dropping corrupted registry cache entry",
			zap.String("key", key),
			zap.Error(err))
		_ = c.client.Del(ctx, c.keyPrefix+key)
		return false, nil
	}
	c.logger.Debug("Registry cache hit", zap.String("key", key))
	return true, nil
}

// Set stores an entry in cache
func (c *RedisRegistryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

// Delete removes entries from cache
func (c *RedisRegistryCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.keyPrefix + k
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// Ensure RedisRegistryCache implements RegistryCache
var _ RegistryCache = (*RedisRegistryCache)(nil)
