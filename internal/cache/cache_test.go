package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(ttl time.Duration) *Cache {
	return New(Config{
		TTLs: map[Type]time.Duration{
			TypeModel:    ttl,
			TypeUpstream: ttl,
		},
		MaxItems: 10,
	})
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(time.Minute)

	c.Set(TypeModel, "match_result", "artifact")
	value, found := c.Get(TypeModel, "match_result")
	assert.True(t, found)
	assert.Equal(t, "artifact", value)
}

func TestCacheTypesAreIsolated(t *testing.T) {
	c := newTestCache(time.Minute)

	c.Set(TypeModel, "k", 1)
	_, found := c.Get(TypeUpstream, "k")
	assert.False(t, found)
}

func TestCacheExpiry(t *testing.T) {
	c := newTestCache(20 * time.Millisecond)

	c.Set(TypeUpstream, "odds", 1.95)
	time.Sleep(40 * time.Millisecond)

	_, found := c.Get(TypeUpstream, "odds")
	assert.False(t, found)
}

func TestCacheDeleteAndStats(t *testing.T) {
	c := newTestCache(time.Minute)

	c.Set(TypeModel, "k", 1)
	c.Delete(TypeModel, "k")
	_, found := c.Get(TypeModel, "k")
	assert.False(t, found)

	hits, misses, ratio := c.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 0.0, ratio)
}
