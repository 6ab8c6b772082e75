package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const defaultCleanupInterval = 30 * time.Second

// cacheEntry holds an encoded value with its expiration time
type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e *cacheEntry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryRegistryCache implements RegistryCache in process memory.
// Entries are stored encoded so callers never share decoded values.
type InMemoryRegistryCache struct {
	entries   sync.Map // map[string]*cacheEntry
	ttl       time.Duration
	stopCh    chan struct{}
	closeOnce sync.Once

	hits   atomic.Int64
	misses atomic.Int64
}

// NewInMemoryRegistryCache creates a cache with the given default TTL and
// starts its cleanup goroutine
func NewInMemoryRegistryCache(ttl time.Duration) *InMemoryRegistryCache {
	if ttl <= 0 {
		ttl = defaultRegistryTTL
	}
	c := &InMemoryRegistryCache{
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	go c.cleanupExpired(defaultCleanupInterval)
	return c
}

// Get retrieves an entry from cache
func (c *InMemoryRegistryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	value, ok := c.entries.Load(key)
	if ok {
		entry := value.(*cacheEntry)
		if !entry.isExpired(time.Now()) {
			if err := json.Unmarshal(entry.data, dst); err != nil {
				return false, fmt.Errorf("failed to decode %s: %w", key, err)
			}
			c.hits.Add(1)
			return true, nil
		}
		c.entries.Delete(key)
	}
	c.misses.Add(1)
	return false, nil
}

// Set stores an entry in cache
func (c *InMemoryRegistryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	c.entries.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(ttl)})
	return nil
}

// Delete removes entries from cache
func (c *InMemoryRegistryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.entries.Delete(k)
	}
	return nil
}

// Stats returns cache hit and miss counts
func (c *InMemoryRegistryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryRegistryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *InMemoryRegistryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.removeExpired(now)
		}
	}
}

func (c *InMemoryRegistryCache) removeExpired(now time.Time) {
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry).isExpired(now) {
			c.entries.Delete(key)
		}
		return true
	})
}

// Ensure InMemoryRegistryCache implements RegistryCache
var _ RegistryCache = (*InMemoryRegistryCache)(nil)
