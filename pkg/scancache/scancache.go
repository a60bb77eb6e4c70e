// Package scancache is a small TTL cache keyed by normalized URL string,
// so repeated scans of the same link within the cache window skip the
// network probe and ML inference entirely. A single mutex guards the map
// — this cache is read-then-maybe-write on every request, so a sync.Map's
// lock-free read path buys nothing over a plain mutex at this scale.
package scancache

import (
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/duration"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a fixed-capacity, TTL-evicting cache keyed by a murmur3 hash of
// the normalized URL rather than the string itself — scanned URLs can run
// to several hundred bytes with long query strings, and a fixed 8-byte
// key keeps the map's memory footprint independent of that.
type Cache struct {
	mu       sync.Mutex
	entries  map[uint64]entry
	ttl      time.Duration
	capacity int
	order    []uint64 // insertion order, for capacity eviction
}

func hashKey(key string) uint64 {
	return murmur3.Sum64([]byte(key))
}

// New builds a Cache. ttl <= 0 or capacity <= 0 fall back to the package
// defaults.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = defaults.CacheSize
	}
	if ttl <= 0 {
		ttl = duration.CacheTTL
	}
	return &Cache{
		entries:  make(map[uint64]entry, capacity),
		ttl:      ttl,
		capacity: capacity,
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	h := hashKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[h]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, h)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, evicting the oldest entry if the cache is
// at capacity.
func (c *Cache) Set(key string, value any) {
	h := hashKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[h]; !exists {
		if len(c.entries) >= c.capacity {
			c.evictOldest()
		}
		c.order = append(c.order, h)
	}
	c.entries[h] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// evictOldest removes the earliest-inserted still-tracked key. Must be
// called with mu held.
func (c *Cache) evictOldest() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}

// Len returns the number of stored entries; expired entries not yet
// removed by Get are counted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
