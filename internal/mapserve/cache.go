// Package mapserve exposes the renderer over HTTP: a /map endpoint
// backed by an in-memory LRU render cache, plus health, metrics and
// cache introspection routes.
package mapserve

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// RenderCache holds encoded map bodies in an LRU with TTL expiry. It is
// safe for concurrent use.
type RenderCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	order      []string // eviction order, oldest first
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	hits       atomic.Int64
	misses     atomic.Int64
}

type cacheEntry struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// CacheStats contains cache performance counters.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewRenderCache creates a RenderCache with the given capacity and TTL.
func NewRenderCache(maxEntries int, ttl time.Duration) *RenderCache {
	return &RenderCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clockwork.NewRealClock(),
	}
}

// Get retrieves a cached body and its content type. Data is nil on a
// miss or after expiry.
func (c *RenderCache) Get(key string) ([]byte, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, ""
	}

	if c.clock.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil, ""
	}

	// Touch: the key becomes the most recent.
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return entry.data, entry.contentType
}

// Put stores an encoded map, evicting the oldest entry at capacity.
func (c *RenderCache) Put(key, contentType string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &cacheEntry{data: data, contentType: contentType, createdAt: c.clock.Now()}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &cacheEntry{data: data, contentType: contentType, createdAt: c.clock.Now()}
	c.order = append(c.order, key)
}

// Stats returns cache performance counters.
func (c *RenderCache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

// removeFromOrder drops a key from the eviction order.
func (c *RenderCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
