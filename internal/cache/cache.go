// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultCleanupInterval is the period Serve uses unless overridden.
const DefaultCleanupInterval = time.Minute

// Entry represents a cached item with expiration
type Entry[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// Cache provides a thread-safe in-memory cache with TTL support
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	stats   Stats

	now             func() time.Time
	cleanupInterval time.Duration
	onEvict         func(evicted, remaining int)
	name            string
}

// Stats tracks cache performance metrics
type Stats struct {
	mu          sync.RWMutex
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now             func() time.Time
	cleanupInterval time.Duration
	onEvict         func(evicted, remaining int)
	name            string
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCleanupInterval sets the period used by Serve.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cleanupInterval = d
		}
	}
}

// WithEvictionHook registers fn to be called after expired entries are
// removed, with the number removed and the number left.
func WithEvictionHook(fn func(evicted, remaining int)) Option {
	return func(o *options) { o.onEvict = fn }
}

// WithName sets the service name reported by String.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New creates a cache whose entries expire ttl after they are stored.
// No goroutine is started; run Serve to reap expired entries.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{
		now:             time.Now,
		cleanupInterval: DefaultCleanupInterval,
		name:            "cache-cleanup",
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		entries:         make(map[string]Entry[V]),
		ttl:             ttl,
		now:             o.now,
		cleanupInterval: o.cleanupInterval,
		onEvict:         o.onEvict,
		name:            o.name,
		stats: Stats{
			LastCleanup: o.now(),
		},
	}
}

// Get returns the value for key if it exists and has not expired.
// An expired entry is removed and counted as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.now()

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return zero, false
	}

	if !now.Before(entry.ExpiresAt) {
		c.mu.Lock()
		// Another goroutine may have stored a fresh entry meanwhile.
		if cur, ok := c.entries[key]; ok && !now.Before(cur.ExpiresAt) {
			delete(c.entries, key)
		}
		remaining := len(c.entries)
		c.mu.Unlock()

		c.recordMiss()
		c.recordEviction(1, remaining)
		return zero, false
	}

	c.recordHit()
	return entry.Data, true
}

// Set stores value under key with the default TTL, replacing any entry.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[V]{
		Data:      value,
		ExpiresAt: c.now().Add(ttl),
	}

	c.stats.mu.Lock()
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.mu.Unlock()
}

// Delete removes key. It is a no-op for missing keys.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	remaining := len(c.entries)
	c.mu.Unlock()

	if existed {
		c.recordEviction(1, remaining)
	}
}

// Clear removes all entries from the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	evictions := len(c.entries)
	c.entries = make(map[string]Entry[V])
	c.mu.Unlock()

	c.recordEviction(evictions, 0)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a copy of the current statistics.
func (c *Cache[V]) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return Stats{
		Hits:        c.stats.Hits,
		Misses:      c.stats.Misses,
		Evictions:   c.stats.Evictions,
		TotalKeys:   c.stats.TotalKeys,
		LastCleanup: c.stats.LastCleanup,
	}
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache[V]) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Cleanup removes all expired entries and returns how many were removed.
func (c *Cache[V]) Cleanup() int {
	now := c.now()

	c.mu.Lock()
	evictions := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			evictions++
		}
	}
	remaining := len(c.entries)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.LastCleanup = now
	c.stats.mu.Unlock()

	c.recordEviction(evictions, remaining)
	return evictions
}

// Serve runs Cleanup periodically until ctx is canceled.
// It implements suture.Service.
func (c *Cache[V]) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

// String names the cleanup service in supervisor logs.
func (c *Cache[V]) String() string {
	return c.name
}

func (c *Cache[V]) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *Cache[V]) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}

func (c *Cache[V]) recordEviction(n, remaining int) {
	c.stats.mu.Lock()
	c.stats.Evictions += int64(n)
	c.stats.TotalKeys = int64(remaining)
	c.stats.mu.Unlock()

	if c.onEvict != nil {
		c.onEvict(n, remaining)
	}
}
