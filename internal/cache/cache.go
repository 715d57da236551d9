// Package cache provides a generic single-flight cache-aside primitive.
//
// One Cache instance backs each analysis component, parameterized by TTL,
// capacity and eviction. Concurrent callers for the same cold key share a
// single computation; compute failures propagate to every waiter and are
// never stored, so the next call retries.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// WithTTL sets the entry lifetime. Zero means entries never expire.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithCapacity bounds the entry count. When full, the oldest entry by
// insertion order is evicted (FIFO). Zero means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means never
	touchedAt time.Time
}

// Cache is a TTL/capacity-bounded in-memory cache with single-flight
// computation. Safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[V]
	order    []string // insertion order, oldest first
	ttl      time.Duration
	capacity int
	now      func() time.Time
	group    singleflight.Group
}

// New creates a Cache with the given options.
func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries:  make(map[string]*entry[V]),
		ttl:      o.ttl,
		capacity: o.capacity,
		now:      o.now,
	}
}

// GetOrCompute returns the cached value for key, or runs fn to compute and
// store it. At most one fn runs per key at a time; concurrent callers for
// the same cold key all receive the single in-flight result.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another waiter may have stored the value while this call was
		// queued behind a finished flight.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Get returns the value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.removeLocked(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, evicting the oldest entry when over
// capacity. Updating an existing key refreshes its TTL and activity time
// but keeps its eviction position.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expires time.Time
	if c.ttl > 0 {
		expires = now.Add(c.ttl)
	}

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expires
		e.touchedAt = now
		return
	}

	c.entries[key] = &entry[V]{value: value, expiresAt: expires, touchedAt: now}
	c.order = append(c.order, key)

	if c.capacity > 0 && len(c.entries) > c.capacity {
		c.removeLocked(c.order[0])
	}
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Contains reports whether key is present and unexpired.
func (c *Cache[V]) Contains(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Len returns the current entry count, including not-yet-collected
// expired entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SweepIdle removes entries not written for at least maxIdle and returns
// their keys, oldest first.
func (c *Cache[V]) SweepIdle(maxIdle time.Duration) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxIdle)
	var swept []string
	for _, key := range append([]string(nil), c.order...) {
		e, ok := c.entries[key]
		if !ok {
			continue
		}
		if e.touchedAt.Before(cutoff) || e.touchedAt.Equal(cutoff) {
			c.removeLocked(key)
			swept = append(swept, key)
		}
	}
	return swept
}

// removeLocked deletes key from the map and the insertion order.
// Caller must hold c.mu.
func (c *Cache[V]) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
