// Package cache provides the bounded lookup cache behind citation resolution.
//
// Entries never go stale on their own. Owners call Reset whenever the data
// behind the cache changes; every Reset starts a new generation, and a value
// computed under an older generation is refused by Store.
package cache

import (
	"container/list"
	"sync"
)

// DefaultSize is the capacity used when none is configured.
const DefaultSize = 1024

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Clears     int64
	Stale      int64
	Size       int
	Capacity   int
	Generation uint64
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type slot[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a generation-guarded least-recently-used cache. It is safe for
// concurrent use.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	gen      uint64
	index    map[K]*list.Element
	order    *list.List // front is most recent
	stats    Stats
}

// New returns an empty LRU holding at most capacity entries. A capacity of
// zero or less selects DefaultSize.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultSize
	}
	return &LRU[K, V]{
		capacity: capacity,
		index:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Generation returns the current generation. Callers read it before
// computing a value and hand it back to Store.
func (c *LRU[K, V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*slot[K, V]).value, true
}

// Store keeps value under key if gen is still current and reports whether
// it did. The least recently used entry is evicted when the cache is full.
func (c *LRU[K, V]) Store(gen uint64, key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.stats.Stale++
		return false
	}
	if el, ok := c.index[key]; ok {
		el.Value.(*slot[K, V]).value = value
		c.order.MoveToFront(el)
		return true
	}
	c.index[key] = c.order.PushFront(&slot[K, V]{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*slot[K, V]).key)
		c.stats.Evictions++
	}
	return true
}

// Reset drops every entry and starts a new generation.
func (c *LRU[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[K]*list.Element)
	c.order.Init()
	c.gen++
	c.stats.Clears++
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.order.Len()
	s.Capacity = c.capacity
	s.Generation = c.gen
	return s
}
