package cache

import (
	"fmt"
	"time"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DueStatusCacheFactory creates due-status caches based on configuration
type DueStatusCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DueStatusCacheFactoryOption is a functional option for configuring the factory
type DueStatusCacheFactoryOption func(*DueStatusCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DueStatusCacheFactoryOption {
	return func(f *DueStatusCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) DueStatusCacheFactoryOption {
	return func(f *DueStatusCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDueStatusCacheFactory creates a new factory
func NewDueStatusCacheFactory(redisCfg config.RedisConfig, ttl time.Duration, opts ...DueStatusCacheFactoryOption) *DueStatusCacheFactory {
	f := &DueStatusCacheFactory{
		redisConfig:           redisCfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed due-status cache
func (f *DueStatusCacheFactory) CreateRedisCache() (billing.DueStatusCache, error) {
	cache, err := NewRedisDueStatusCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis due-status cache: %w", err)
	}
	return cache, nil
}

// CreateInMemoryCache creates an in-memory due-status cache.
// In-memory caches do not share state across process instances.
func (f *DueStatusCacheFactory) CreateInMemoryCache() billing.DueStatusCache {
	return NewInMemoryDueStatusCache(
		WithInMemoryTTL(f.ttl),
		WithInMemoryLogger(f.logger),
	)
}

// CreateCache creates a due-status cache for the requested backend. For the
// redis backend it falls back to in-memory when Redis is unreachable and
// fallback is allowed.
func (f *DueStatusCacheFactory) CreateCache(backend string) (billing.DueStatusCache, error) {
	if backend == "memory" {
		f.logger.Info("using in-memory due-status cache")
		return f.CreateInMemoryCache(), nil
	}

	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis due-status cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for due-status cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory due-status cache. "+
		"Cached projections will not be shared across instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
