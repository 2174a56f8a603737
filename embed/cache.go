package embed

import (
	"sync"
	"time"

	"github.com/poiesic/textgraph/core"
)

// cacheEntry holds a cached vector and its expiry.
type cacheEntry struct {
	vector    []float32
	expiresAt time.Time
}

// Cache is an in-memory TTL cache for embedding vectors. Keys are
// content-hash digests of the input text, so lookups are O(1) and
// independent of text length. Expired entries are evicted lazily on the
// next lookup.
type Cache struct {
	mu      sync.RWMutex
	entries map[core.ID]cacheEntry
	ttl     time.Duration
	clock   func() time.Time
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[core.ID]cacheEntry),
		ttl:     ttl,
		clock:   time.Now,
	}
}

// key derives the cache key for a text: a fixed-size content digest.
func key(text string) core.ID {
	return core.IDFromContent(text)
}

// Get returns the cached vector for text, evicting it first if expired.
func (c *Cache) Get(text string) ([]float32, bool) {
	k := key(text)

	c.mu.RLock()
	entry, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.clock().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have refreshed it.
		if current, still := c.entries[k]; still && c.clock().After(current.expiresAt) {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.vector, true
}

// Put stores the vector for text with the configured TTL.
func (c *Cache) Put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(text)] = cacheEntry{
		vector:    vector,
		expiresAt: c.clock().Add(c.ttl),
	}
}

// Len returns the number of entries, including any not yet lazily evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset clears the cache wholesale.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[core.ID]cacheEntry)
}
