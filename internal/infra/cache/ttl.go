// Package cache holds an in-process TTL cache for small, read-mostly data
// such as the service catalog.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	val     V
	expires time.Time
}

// TTL is a concurrency-safe map whose entries expire after a fixed duration.
// A zero or negative ttl disables caching.
type TTL[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
	ttl   time.Duration
	now   func() time.Time
	// gen is bumped by Invalidate and Purge so an in-flight fetch
	// cannot write back a value loaded before the invalidation.
	gen uint64
}

func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{items: make(map[K]entry[V]), ttl: ttl, now: time.Now}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expires) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && !c.now().Before(cur.expires) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.val, true
}

func (c *TTL[K, V]) Set(key K, val V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[key] = entry[V]{val: val, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTL[K, V]) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// setIfGen stores val only when no invalidation happened since gen was read.
func (c *TTL[K, V]) setIfGen(key K, val V, gen uint64) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	if c.gen == gen {
		c.items[key] = entry[V]{val: val, expires: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetOrFetch returns the cached value or calls fetch and caches its result.
// Errors are not cached. hit reports whether fetch was skipped.
func (c *TTL[K, V]) GetOrFetch(key K, fetch func() (V, error)) (val V, hit bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	gen := c.generation()
	v, err := fetch()
	if err != nil {
		return v, false, err
	}
	c.setIfGen(key, v, gen)
	return v, false, nil
}

func (c *TTL[K, V]) Invalidate(keys ...K) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.gen++
	c.mu.Unlock()
}

func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	c.items = make(map[K]entry[V])
	c.gen++
	c.mu.Unlock()
}
