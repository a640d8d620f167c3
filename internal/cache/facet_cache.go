// Package cache keeps the coupon-name and store facet lists between coupon mutations.
package cache

import (
	"context"
	"sync"
	"time"
)

// FacetCache stores string lists by key. Any coupon mutation invalidates everything.
type FacetCache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, values []string)
	Invalidate(ctx context.Context) error
}

// Key builds a facet key such as "names:vip".
func Key(facet, teamID string) string {
	if teamID == "" {
		teamID = "_all"
	}
	return facet + ":" + teamID
}

type memoryEntry struct {
	values    []string
	expiresAt time.Time
}

// MemoryCache is a process-local FacetCache.
type MemoryCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	store map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCache creates a MemoryCache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:   ttl,
		store: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Get returns a copy of the cached values.
func (c *MemoryCache) Get(_ context.Context, key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return append([]string(nil), e.values...), true
}

// Set stores a copy of values.
func (c *MemoryCache) Set(_ context.Context, key string, values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = memoryEntry{
		values:    append([]string(nil), values...),
		expiresAt: c.now().Add(c.ttl),
	}
}

// Invalidate drops every entry.
func (c *MemoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]memoryEntry)
	return nil
}
