// Package cache provides an injected TTL cache shared by the engine.
package cache

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Type identifies a cache region with its own TTL.
type Type string

// Cache regions used by the engine.
const (
	TypeModel    Type = "model"
	TypeRating   Type = "rating"
	TypeUpstream Type = "upstream"
)

// Config maps cache types to TTLs. Injected rather than module-level so tests
// can control time and eviction directly.
type Config struct {
	TTLs     map[Type]time.Duration
	MaxItems int
}

// Cache is a TTL-bounded in-memory cache partitioned by Type.
type Cache struct {
	store    *gocache.Cache
	ttls     map[Type]time.Duration
	maxItems int
	mu       sync.RWMutex
	hits     uint64
	misses   uint64
}

// New creates a cache from the given type-to-TTL mapping.
func New(cfg Config) *Cache {
	minTTL := time.Minute
	for _, ttl := range cfg.TTLs {
		if ttl < minTTL {
			minTTL = ttl
		}
	}

	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = 1000
	}

	return &Cache{
		store:    gocache.New(minTTL, minTTL*2),
		ttls:     cfg.TTLs,
		maxItems: maxItems,
	}
}

func key(t Type, k string) string {
	return fmt.Sprintf("%s:%s", t, k)
}

// Get retrieves a cached value.
func (c *Cache) Get(t Type, k string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, found := c.store.Get(key(t, k))
	if found {
		c.hits++
		return value, true
	}
	c.misses++
	return nil, false
}

// Set stores a value under its type's TTL.
func (c *Cache) Set(t Type, k string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store.ItemCount() >= c.maxItems {
		c.store.DeleteExpired()
	}

	ttl, ok := c.ttls[t]
	if !ok {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key(t, k), value, ttl)
}

// Delete removes one entry.
func (c *Cache) Delete(t Type, k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Delete(key(t, k))
}

// Flush clears the whole cache and its statistics.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Flush()
	c.hits = 0
	c.misses = 0
}

// Stats returns hit/miss counts and the hit ratio.
func (c *Cache) Stats() (hits, misses uint64, ratio float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits = c.hits
	misses = c.misses
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of cached items.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}
