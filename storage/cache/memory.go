package cache

import (
	"context"
	"sync"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/timetable"
)

// MemoryCache is a process-local cache with the same semantics as RedisCache, minus expiry.
// Stale generations are dropped on invalidation.
type MemoryCache struct {
	mu         sync.Mutex
	generation int64
	entries    map[string][]byte

	Hits, Misses int
}

var (
	_ timetable.Cache     = (*MemoryCache)(nil)
	_ core.ChangeListener = (*MemoryCache)(nil)
)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

func (c *MemoryCache) Generation(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if ok {
		c.Hits++
	} else {
		c.Misses++
	}
	return data, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = val
	return nil
}

func (c *MemoryCache) DataChanged(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries = make(map[string][]byte)
}
