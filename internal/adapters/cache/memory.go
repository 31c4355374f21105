// Package cache provides summary cache adapters.
// Clean Architecture: Adapters implementing ports.SummaryCache.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

// DefaultTTL is used when neither the cache nor the caller sets a lifetime.
const DefaultTTL = time.Hour

// MemoryCache is an in-process summary cache with per-entry expiry and an
// optional LRU capacity bound.
type MemoryCache struct {
	cache  *ttlcache.Cache[string, string]
	logger *zap.Logger
}

// NewMemoryCache creates a MemoryCache and starts its expiry loop. A zero
// capacity means unbounded. Call Close to stop the loop.
func NewMemoryCache(ttl time.Duration, capacity uint64, logger *zap.Logger) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []ttlcache.Option[string, string]{
		ttlcache.WithTTL[string, string](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, string](capacity))
	}

	c := &MemoryCache{
		cache:  ttlcache.New(opts...),
		logger: logger,
	}

	c.cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, string]) {
		if reason == ttlcache.EvictionReasonDeleted {
			return
		}
		reasonStr := "expired"
		if reason == ttlcache.EvictionReasonCapacityReached {
			reasonStr = "capacity reached"
		}
		logger.Debug("summary evicted", zap.String("key", item.Key()), zap.String("reason", reasonStr))
	})

	go c.cache.Start()
	return c
}

// Get returns the cached summary if present and unexpired.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	item := c.cache.Get(key)
	if item == nil || item.IsExpired() {
		return "", false, nil
	}
	return item.Value(), true, nil
}

// Set stores a summary. A zero ttl uses the cache default.
func (c *MemoryCache) Set(ctx context.Context, key, summary string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	c.cache.Set(key, summary, ttl)
	return nil
}

// Delete removes a cached summary.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}

// Close stops the expiry loop.
func (c *MemoryCache) Close() error {
	c.cache.Stop()
	return nil
}
