package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisDueStatusCache implements billing.DueStatusCache using Redis.
// Suitable for deployments where multiple instances share cached
// projections.
type RedisDueStatusCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisDueStatusCache creates a new Redis-backed due-status cache
func NewRedisDueStatusCache(cfg RedisConfig, defaultTTL time.Duration) (*RedisDueStatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if defaultTTL == 0 {
		defaultTTL = 5 * time.Minute
	}

	return &RedisDueStatusCache{
		client:     client,
		keyPrefix:  "billing:due_status:",
		defaultTTL: defaultTTL,
	}, nil
}

// NewRedisDueStatusCacheWithClient creates a cache with an existing Redis
// client, useful for testing or when sharing a client across components.
func NewRedisDueStatusCacheWithClient(client *redis.Client, keyPrefix string, defaultTTL time.Duration) *RedisDueStatusCache {
	if keyPrefix == "" {
		keyPrefix = "billing:due_status:"
	}
	if defaultTTL == 0 {
		defaultTTL = 5 * time.Minute
	}
	return &RedisDueStatusCache{
		client:     client,
		keyPrefix:  keyPrefix,
		defaultTTL: defaultTTL,
	}
}

func (c *RedisDueStatusCache) key(memberID uuid.UUID) string {
	return c.keyPrefix + memberID.String()
}

// Get retrieves a member's due status; nil with nil error is a miss
func (c *RedisDueStatusCache) Get(ctx context.Context, memberID uuid.UUID) (*billing.MemberDueStatus, error) {
	data, err := c.client.Get(ctx, c.key(memberID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read due status from Redis: %w", err)
	}

	var status billing.MemberDueStatus
	if err := json.Unmarshal(data, &status); err != nil {
		// A corrupt entry behaves like a miss; the projector will overwrite it
		return nil, nil
	}
	return &status, nil
}

// Set stores a member's due status
func (c *RedisDueStatusCache) Set(ctx context.Context, status *billing.MemberDueStatus, ttl time.Duration) error {
	if status == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal due status: %w", err)
	}

	if err := c.client.Set(ctx, c.key(status.MemberID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write due status to Redis: %w", err)
	}
	return nil
}

// Delete removes a member's due status from the cache
func (c *RedisDueStatusCache) Delete(ctx context.Context, memberID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(memberID)).Err(); err != nil {
		return fmt.Errorf("failed to delete due status from Redis: %w", err)
	}
	return nil
}

// InvalidateAll removes every cached due status, used after a full rebuild
func (c *RedisDueStatusCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete due status key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan due status keys: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisDueStatusCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisDueStatusCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisDueStatusCache implements DueStatusCache
var _ billing.DueStatusCache = (*RedisDueStatusCache)(nil)
