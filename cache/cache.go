// Package cache keeps fetched pages for the duration of a crawl so a page
// requested twice (a section index used for discovery and then downloaded)
// hits the network once.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/doccrawl/engine"
)

// entry holds a cached fetch result with its creation timestamp.
type entry struct {
	result    *engine.FetchResult
	createdAt time.Time
}

// Cache is a bounded in-memory page cache. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// New creates a Cache holding at most maxEntries pages, each valid for ttl.
// A ttl <= 0 keeps entries until evicted. maxEntries <= 0 disables caching.
func New(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Key generates a cache key from a page URL. Trailing slashes are ignored so
// "/guide" and "/guide/" share an entry.
func Key(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimRight(url, "/")))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for key if present and not expired.
func (c *Cache) Get(key string) (*engine.FetchResult, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.result, true
}

// Set stores a result. At capacity the oldest entry is evicted first.
func (c *Cache) Set(key string, result *engine.FetchResult) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}

	c.store[key] = &entry{
		result:    result,
		createdAt: c.now(),
	}
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
