package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Stores bundles the caches the application uses
type Stores struct {
	Registry    RegistryCache
	Idempotency shared.IdempotencyStore
	client      *redis.Client
	closers     []func() error
}

// Close releases the stores and the Redis connection
func (s *Stores) Close() error {
	for _, c := range s.closers {
		_ = c()
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Redis returns the shared client, nil when running in memory
func (s *Stores) Redis() *redis.Client {
	return s.client
}

// StoresFactory creates stores based on configuration
type StoresFactory struct {
	redisConfig           *config.RedisConfig
	registryTTL           time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoresFactoryOption is a functional option for configuring the factory
type StoresFactoryOption func(*StoresFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoresFactoryOption {
	return func(f *StoresFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) StoresFactoryOption {
	return func(f *StoresFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithRegistryTTL sets how long transitions and templates stay cached
func WithRegistryTTL(ttl time.Duration) StoresFactoryOption {
	return func(f *StoresFactory) {
		f.registryTTL = ttl
	}
}

// NewStoresFactory creates a new factory
func NewStoresFactory(cfg *config.RedisConfig, opts ...StoresFactoryOption) *StoresFactory {
	f := &StoresFactory{
		redisConfig:           cfg,
		registryTTL:           defaultRegistryTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns Redis-backed stores when Redis is enabled and reachable,
// in-memory stores otherwise
func (f *StoresFactory) Create(ctx context.Context) (*Stores, error) {
	if f.redisConfig == nil || !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory caches")
		return f.inMemory(), nil
	}

	client, err := NewRedisClient(ctx, RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory caches. "+
			"Duplicate submissions are only detected per instance.",
			zap.Error(err))
		return f.inMemory(), nil
	}

	f.logger.Info("Using Redis caches", zap.String("addr", f.redisConfig.Addr()))
	return &Stores{
		Registry:    NewRedisRegistryCache(client, WithTTL(f.registryTTL), WithCacheLogger(f.logger)),
		Idempotency: NewRedisIdempotencyStoreWithClient(client, ""),
		client:      client,
	}, nil
}

func (f *StoresFactory) inMemory() *Stores {
	registry := NewInMemoryRegistryCache(f.registryTTL)
	idempotency := NewInMemoryIdempotencyStore()
	return &Stores{
		Registry:    registry,
		Idempotency: idempotency,
		closers:     []func() error{registry.Close, idempotency.Close},
	}
}
