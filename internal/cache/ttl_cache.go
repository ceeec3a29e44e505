// Package cache holds short-lived caches for derived sets that are cheap to
// rebuild, such as the per-document anchored-node sets.
package cache

import (
	"sync"
	"time"
)

type stamped[V any] struct {
	value   V
	expires time.Time
}

// TTLCache is a thread-safe map whose entries expire ttl after they were
// stored. Expired entries are dropped lazily on access.
type TTLCache[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]stamped[V]
	ttl  time.Duration
	now  func() time.Time
}

// New returns an empty cache.
func New[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{data: make(map[K]stamped[V]), ttl: ttl, now: time.Now}
}

// Get returns the value for key unless it is missing or expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expires) {
		delete(c.data, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for one ttl.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = stamped[V]{value: value, expires: c.now().Add(c.ttl)}
}

// Delete drops key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear drops every entry.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.data)
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
