package transport

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache is an in-process LRU cache with per-entry TTL, the first
// tier adapters consult (through TieredCache) before falling through to
// FileCache.
type MemoryCache struct {
	lru *lru.Cache[string, memoryEntry]
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache creates an LRU cache holding at most capacity entries.
func NewMemoryCache(capacity int) (*MemoryCache, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	c, err := lru.New[string, memoryEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: c}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expires) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	c.lru.Add(key, memoryEntry{value: value, expires: time.Now().Add(ttl)})
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.lru.Purge()
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

// Len reports the number of stored entries, including expired entries that
// have not been read or evicted yet.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
