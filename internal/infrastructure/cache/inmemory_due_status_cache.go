package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// InMemoryDueStatusCache implements billing.DueStatusCache using in-memory
// storage. Suitable for single-instance deployments and testing.
type InMemoryDueStatusCache struct {
	entries    sync.Map // map[uuid.UUID]*cacheEntry
	defaultTTL time.Duration
	logger     *zap.Logger
	stopCh     chan struct{}
	stopped    int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// cacheEntry wraps a cached value with expiration time
type cacheEntry struct {
	value     *billing.MemberDueStatus
	expiresAt time.Time
}

func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryDueStatusCacheOption is a functional option for configuring the cache
type InMemoryDueStatusCacheOption func(*InMemoryDueStatusCache)

// WithInMemoryTTL sets the default TTL used when Set receives a zero TTL
func WithInMemoryTTL(ttl time.Duration) InMemoryDueStatusCacheOption {
	return func(c *InMemoryDueStatusCache) {
		c.defaultTTL = ttl
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryDueStatusCacheOption {
	return func(c *InMemoryDueStatusCache) {
		c.logger = logger
	}
}

// NewInMemoryDueStatusCache creates a new in-memory due-status cache
func NewInMemoryDueStatusCache(opts ...InMemoryDueStatusCacheOption) *InMemoryDueStatusCache {
	cache := &InMemoryDueStatusCache{
		defaultTTL: 5 * time.Minute,
		logger:     zap.NewNop(),
		stopCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a member's due status; nil with nil error is a miss
func (c *InMemoryDueStatusCache) Get(ctx context.Context, memberID uuid.UUID) (*billing.MemberDueStatus, error) {
	if value, ok := c.entries.Load(memberID); ok {
		entry := value.(*cacheEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("Due-status cache hit", zap.String("member_id", memberID.String()))
			return entry.value, nil
		}
		c.entries.Delete(memberID)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("Due-status cache miss", zap.String("member_id", memberID.String()))
	return nil, nil
}

// Set stores a member's due status
func (c *InMemoryDueStatusCache) Set(ctx context.Context, status *billing.MemberDueStatus, ttl time.Duration) error {
	if status == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.entries.Store(status.MemberID, &cacheEntry{
		value:     status,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes a member's due status from the cache
func (c *InMemoryDueStatusCache) Delete(ctx context.Context, memberID uuid.UUID) error {
	c.entries.Delete(memberID)
	return nil
}

// InvalidateAll removes every cached due status, used after a full rebuild
func (c *InMemoryDueStatusCache) InvalidateAll(ctx context.Context) error {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	c.logger.Info("Invalidated all cached due statuses")
	return nil
}

// Close releases any resources held by the cache
func (c *InMemoryDueStatusCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryDueStatusCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryDueStatusCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in cache cleanup", zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

func (c *InMemoryDueStatusCache) doCleanup() {
	var removed int
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry).isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Cleaned up expired due-status entries", zap.Int("removed", removed))
	}
}

// Ensure InMemoryDueStatusCache implements DueStatusCache
var _ billing.DueStatusCache = (*InMemoryDueStatusCache)(nil)
