// Package cache holds short-lived computed results in process memory.
// It backs the report endpoints, where a burst of identical range
// queries would otherwise run the same aggregate SQL once per request.
package cache

import (
	"sync"
	"time"
)

const defaultTTL = 30 * time.Second

type item struct {
	value     any
	expiresAt time.Time
}

type Cache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]item
}

// New returns a cache whose entries live for ttl after each Set.
// Non-positive ttls fall back to the default report freshness window.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Cache{
		ttl:   ttl,
		items: make(map[string]item),
	}
}

// Get returns the live value for key. Expired entries are dropped on
// read; there is no background sweeper since report keys churn fast.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(it.expiresAt) {
		c.Delete(key)

		return nil, false
	}

	return it.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.items[key] = item{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
}
