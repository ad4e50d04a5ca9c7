// Package memory provides an in-process ResultCache backed by a TTL
// map. It is the default backend and the one used throughout the tests.
package memory

import (
	"context"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ResultCache = (*Cache)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL map. Expired entries are dropped
// lazily on access and swept opportunistically on Set.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for the key, or false on a miss.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores the value under the key with the given TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Piggyback a sweep so a write-heavy cache does not grow unbounded.
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

// DeletePattern removes every key matching the glob pattern.
func (c *Cache) DeletePattern(_ context.Context, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if ok, err := path.Match(pattern, k); err == nil && ok {
			delete(c.entries, k)
		}
	}
}

// Stats reports cache health and hit counters.
func (c *Cache) Stats(_ context.Context) domain.CacheStats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()
	live := 0
	for _, e := range c.entries {
		if !now.After(e.expiresAt) {
			live++
		}
	}
	return domain.CacheStats{
		Status:  "connected",
		Entries: live,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Close releases resources.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	return nil
}
