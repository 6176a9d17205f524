// Package cache is a small in-memory TTL cache used by the API for run jobs
// and document previews.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// entry holds a cached value with its creation timestamp.
type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Cache maps string keys to values that expire after a TTL.
// It is safe for concurrent use.
type Cache[V any] struct {
	mu         sync.RWMutex
	store      map[string]*entry[V]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// New creates a Cache holding at most maxEntries values for ttl each.
// A non-positive maxEntries means unbounded.
func New[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		store:      make(map[string]*entry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Key derives a fixed-length key from its parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. When the cache is full, expired entries are
// dropped first, then the oldest entry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && c.maxEntries > 0 && len(c.store) >= c.maxEntries {
		c.evictLocked()
	}
	c.store[key] = &entry[V]{value: value, createdAt: c.now()}
}

// Len reports the number of stored entries, including expired ones not yet
// evicted.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Values returns the unexpired values in no particular order.
func (c *Cache[V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.store))
	for _, e := range c.store {
		if !c.expired(e) {
			out = append(out, e.value)
		}
	}
	return out
}

// Sweep removes expired entries.
func (c *Cache[V]) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if c.expired(e) {
			delete(c.store, k)
		}
	}
}

// Run sweeps every interval until stop is closed.
func (c *Cache[V]) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl
}

func (c *Cache[V]) evictLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.store {
		if c.expired(e) {
			delete(c.store, k)
			continue
		}
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey, oldest = k, e.createdAt
		}
	}
	if len(c.store) >= c.maxEntries && oldestKey != "" {
		delete(c.store, oldestKey)
	}
}
