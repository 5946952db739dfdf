// Package cache keeps worksheet header users between requests.
package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryUserCache caches header users per worksheet in process memory.
type MemoryUserCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]userEntry
}

type userEntry struct {
	users     []string
	expiresAt time.Time
}

// NewMemoryUserCache constructs a cache whose entries live for ttl.
func NewMemoryUserCache(ttl time.Duration) *MemoryUserCache {
	return &MemoryUserCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]userEntry),
	}
}

// Get returns the cached users of sheet and whether the entry was present and fresh.
func (c *MemoryUserCache) Get(_ context.Context, sheet string) ([]string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[sheet]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return append([]string(nil), entry.users...), true, nil
}

// Set stores the users of sheet.
func (c *MemoryUserCache) Set(_ context.Context, sheet string, users []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sheet] = userEntry{
		users:     append([]string(nil), users...),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Invalidate drops the entry for sheet.
func (c *MemoryUserCache) Invalidate(_ context.Context, sheet string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sheet)
	return nil
}
