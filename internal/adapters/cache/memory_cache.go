package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of the CacheRepository interface
type MemoryCache struct {
	entries     map[string]memoryEntry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	started     time.Time
	now         func() time.Time
	hits        atomic.Int64
	misses      atomic.Int64
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:     make(map[string]memoryEntry),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		started:     time.Now(),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go startCleanupTask(cache, logger, cleanupFreq, cache.stopCh)
	}

	return cache
}

// Get retrieves a cached value
func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		c.misses.Add(1)
		return "", core.ErrCacheMiss
	}

	c.hits.Add(1)
	return entry.value, nil
}

// Set stores a value until ttl elapses
func (c *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Stats counts live entries under prefix and estimates their size
func (c *MemoryCache) Stats(ctx context.Context, prefix string) (*core.CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	total := 0
	var size uint64
	for key, entry := range c.entries {
		if !strings.HasPrefix(key, prefix) || !now.Before(entry.expiresAt) {
			continue
		}
		total++
		size += uint64(len(key) + len(entry.value))
	}

	return &core.CacheStats{
		TotalKeys:  total,
		MemoryUsed: humanize.Bytes(size),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Uptime:     int64(time.Since(c.started).Seconds()),
	}, nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0

	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// startCleanupTask runs store.Cleanup every freq until stopCh closes
func startCleanupTask(store core.CacheRepository, logger *zap.Logger, freq time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := store.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
