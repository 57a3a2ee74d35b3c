// Package cache implements the TTL-bounded product record cache
// (spec.md §4.4), keyed by marketplace.Fingerprint.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/scrapehub/scrapehub/internal/marketplace"
)

// entry is the cached value paired with its absolute expiry instant
// (spec.md §3 CacheEntry).
type entry struct {
	value  any
	expiry time.Time
}

// Cache is a single-lock, lazily-purged TTL cache bounded to MaxItems.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxItems int
	store    map[marketplace.Fingerprint]entry
	now      func() time.Time
}

// New constructs a Cache with the given TTL and item bound.
func New(ttl time.Duration, maxItems int) *Cache {
	return &Cache{
		ttl:      ttl,
		maxItems: maxItems,
		store:    make(map[marketplace.Fingerprint]entry),
		now:      time.Now,
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key marketplace.Fingerprint) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
	e, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if e.expiry.Before(c.now()) {
		delete(c.store, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the cache's configured TTL.
func (c *Cache) Set(key marketplace.Fingerprint, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
	c.store[key] = entry{value: value, expiry: c.now().Add(c.ttl)}
	c.evictOldestLocked()
}

// Size reports the number of live (unexpired) entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
	return len(c.store)
}

func (c *Cache) purgeLocked() {
	now := c.now()
	for k, e := range c.store {
		if e.expiry.Before(now) {
			delete(c.store, k)
		}
	}
}

// evictOldestLocked removes the oldest-by-expiry entries until the store is
// at or below maxItems (spec.md §4.4).
func (c *Cache) evictOldestLocked() {
	if c.maxItems <= 0 || len(c.store) <= c.maxItems {
		return
	}
	type keyed struct {
		key    marketplace.Fingerprint
		expiry time.Time
	}
	ordered := make([]keyed, 0, len(c.store))
	for k, e := range c.store {
		ordered = append(ordered, keyed{key: k, expiry: e.expiry})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].expiry.Before(ordered[j].expiry) })
	excess := len(c.store) - c.maxItems
	for i := 0; i < excess; i++ {
		delete(c.store, ordered[i].key)
	}
}
