package service

import (
	"context"
	"sync"

	"github.com/Tilak559/solar/model"
)

// Cache stores estimates, including error shaped ones, by key.
type Cache interface {
	Get(ctx context.Context, key string) (*model.Estimate, bool, error)
	Set(ctx context.Context, key string, est *model.Estimate) error
}

// MemoryCache is a process wide cache. It hands back the stored pointer, so
// callers must treat cached estimates as read only. With maxEntries > 0 the
// oldest entry is evicted first.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]*model.Estimate
	order      []string
	maxEntries int
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		items:      make(map[string]*model.Estimate),
		maxEntries: maxEntries,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*model.Estimate, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	est, ok := c.items[key]
	return est, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, est *model.Estimate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = est

	for c.maxEntries > 0 && len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	return nil
}

func (c *MemoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*model.Estimate, bool, error) {
	return nil, false, nil
}

func (NoopCache) Set(context.Context, string, *model.Estimate) error {
	return nil
}
