// Package cache provides a process-local TTL cache with lazy, size-triggered sweeping.
package cache

import (
	"sort"
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Size    int     `json:"size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache maps keys to values that expire ttl after insertion.
// Expired entries are treated as absent on Get and removed then.
// A full sweep runs only when a Set pushes the size above sweepAt; if the
// sweep frees nothing the oldest entries are evicted down to sweepAt.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	sweepAt int
	entries map[K]entry[V]
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache. A zero ttl disables expiry; a zero sweepAt disables sweeping.
func New[K comparable, V any](ttl time.Duration, sweepAt int, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		ttl:     ttl,
		sweepAt: sweepAt,
		entries: make(map[K]entry[V]),
		now:     o.now,
	}
}

// Get returns the live value for k.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if ok && c.expired(e, c.now()) {
		delete(c.entries, k)
		ok = false
	}
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores v under k, sweeping when the size threshold is crossed.
func (c *Cache[K, V]) Set(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[k] = entry[V]{value: v, storedAt: now}
	if c.sweepAt > 0 && len(c.entries) > c.sweepAt {
		c.sweepLocked(now)
		c.evictOldestLocked()
	}
}

// Delete removes k.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries and resets counters.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]entry[V])
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
}

// SetTTL changes the expiry for existing and future entries.
func (c *Cache[K, V]) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

// Stats returns size and hit counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Size: len(c.entries), Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache[K, V]) expired(e entry[V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.storedAt) > c.ttl
}

func (c *Cache[K, V]) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cache[K, V]) evictOldestLocked() {
	over := len(c.entries) - c.sweepAt
	if over <= 0 {
		return
	}
	type aged struct {
		key K
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, at: e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	for _, a := range all[:over] {
		delete(c.entries, a.key)
	}
}
