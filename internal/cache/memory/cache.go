// Package memory provides an in-memory session cache.
// It is used when Redis is disabled and the server runs as a single node.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/prn-tf/photoshare/internal/repository"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = time.Minute

// Cache implements repository.Cache with a map guarded by a RWMutex.
// Entries are evicted lazily on read and by a background janitor.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]entry
	maxEntries int
	stopCh     chan struct{}
	stopOnce   sync.Once
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Options configures a Cache.
type Options struct {
	// MaxEntries caps the number of entries. When full, Set first sweeps
	// expired entries and then drops an arbitrary one. Zero means unbounded.
	MaxEntries int

	// CleanupInterval overrides DefaultCleanupInterval.
	CleanupInterval time.Duration
}

// NewCache creates a cache and starts its janitor. Call Stop to release it.
func NewCache(opts Options) *Cache {
	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	c := &Cache{
		items:      make(map[string]entry),
		maxEntries: opts.MaxEntries,
		stopCh:     make(chan struct{}),
	}

	go c.janitor(interval)

	return c
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.sweepLocked(time.Now())
			c.mu.Unlock()
		}
	}
}

func (c *Cache) sweepLocked(now time.Time) {
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
		}
	}
}

// Stop stops the janitor. It is safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Get retrieves a copy of the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, repository.ErrCacheMiss
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value. A zero ttl stores it without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.sweepLocked(time.Now())
		for k := range c.items {
			if len(c.items) < c.maxEntries {
				break
			}
			delete(c.items, k)
		}
	}

	c.items[key] = e
	return nil
}

// Delete removes key. Missing keys are ignored.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including ones not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Ensure Cache implements repository.Cache.
var _ repository.Cache = (*Cache)(nil)
