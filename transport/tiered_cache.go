package transport

import (
	"context"
	"time"
)

// TieredCache checks an in-process MemoryCache first and falls through to a
// durable FileCache on a miss, backfilling memory so the next read for the
// same key stays in-process. Writes go to both tiers.
type TieredCache struct {
	memory *MemoryCache
	file   *FileCache
}

// NewTieredCache composes memory and file into a single two-level Cache.
func NewTieredCache(memory *MemoryCache, file *FileCache) *TieredCache {
	return &TieredCache{memory: memory, file: file}
}

func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, ok, err := c.memory.Get(ctx, key); err != nil {
		return nil, false, err
	} else if ok {
		return val, true, nil
	}

	val, ok, err := c.file.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	// Backfill memory with a short TTL; the file tier remains the source of
	// truth for the entry's real expiry.
	_ = c.memory.Set(ctx, key, val, 60*time.Second)
	return val, true, nil
}

func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.file.Set(ctx, key, value, ttl)
}

func (c *TieredCache) Delete(ctx context.Context, key string) error {
	_ = c.memory.Delete(ctx, key)
	return c.file.Delete(ctx, key)
}

func (c *TieredCache) Clear(ctx context.Context) error {
	_ = c.memory.Clear(ctx)
	return c.file.Clear(ctx)
}

func (c *TieredCache) Exists(ctx context.Context, key string) (bool, error) {
	if ok, err := c.memory.Exists(ctx, key); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	return c.file.Exists(ctx, key)
}
