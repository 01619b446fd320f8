package license

import (
	"sync"
	"time"

	"qajalicense/internal/config"
)

type cacheEntry struct {
	data      []byte
	cachedAt  time.Time
	expiresAt time.Time
	hitCount  int
}

// DocumentCache holds encoded license documents for a short time so that
// reporting endpoints do not hit the backend on every request
type DocumentCache struct {
	entries   map[string]cacheEntry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewDocumentCache creates a cache. It returns nil when ttl is not positive,
// which disables caching in the store.
func NewDocumentCache(ttl time.Duration, maxSize int) *DocumentCache {
	if ttl <= 0 {
		return nil
	}

	cache := &DocumentCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go cache.cleanup(config.CacheCleanupInterval)

	return cache
}

// Get returns a copy of the cached bytes for key
func (c *DocumentCache) Get(key string) ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiresAt) {
		c.missCount++
		return nil, false
	}

	entry.hitCount++
	c.entries[key] = entry
	c.hitCount++

	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, true
}

// Set stores data under key
func (c *DocumentCache) Set(key string, data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	now := time.Now()
	c.entries[key] = cacheEntry{
		data:      stored,
		cachedAt:  now,
		expiresAt: now.Add(c.ttl),
	}
}

// Invalidate removes key from the cache
func (c *DocumentCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// GetStats returns cache statistics
func (c *DocumentCache) GetStats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	totalRequests := c.hitCount + c.missCount
	hitRatio := float64(0)
	if totalRequests > 0 {
		hitRatio = float64(c.hitCount) / float64(totalRequests)
	}

	return map[string]interface{}{
		"entries":     len(c.entries),
		"max_size":    c.maxSize,
		"hit_count":   c.hitCount,
		"miss_count":  c.missCount,
		"hit_ratio":   hitRatio,
		"ttl_seconds": c.ttl.Seconds(),
	}
}

func (c *DocumentCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (c *DocumentCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *DocumentCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopChan:
			return
		}
	}
}
