package transport

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property I6: ∀ cache get for a key with TTL t written at T, a get at T+Δ
// with Δ>t returns a miss; a get with Δ<t still hits (§8).
func TestProperty_I6_EntriesNeverOutliveTTL(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("memory cache never returns an entry past its TTL", prop.ForAll(
		func(ttlMs int) bool {
			ctx := context.Background()
			c, err := NewMemoryCache(16)
			if err != nil {
				return false
			}
			ttl := time.Duration(ttlMs) * time.Millisecond

			if err := c.Set(ctx, "key", []byte("value"), ttl); err != nil {
				return false
			}

			_, hitBefore, err := c.Get(ctx, "key")
			if err != nil || !hitBefore {
				return false
			}

			time.Sleep(ttl + 15*time.Millisecond)
			_, hitAfter, err := c.Get(ctx, "key")
			return err == nil && !hitAfter
		},
		gen.IntRange(5, 30),
	))

	properties.TestingRun(t)
}

// Property: the same law holds for FileCache, the durable second tier.
func TestProperty_I6_FileCacheEntriesNeverOutliveTTL(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	properties := gopter.NewProperties(parameters)

	properties.Property("file cache never returns an entry past its TTL", prop.ForAll(
		func(ttlMs int) bool {
			ctx := context.Background()
			c, err := NewFileCache(t.TempDir(), 1000, nil)
			if err != nil {
				return false
			}
			ttl := time.Duration(ttlMs) * time.Millisecond

			if err := c.Set(ctx, "key", []byte("value"), ttl); err != nil {
				return false
			}

			time.Sleep(ttl + 20*time.Millisecond)
			_, hit, err := c.Get(ctx, "key")
			return err == nil && !hit
		},
		gen.IntRange(5, 30),
	))

	properties.TestingRun(t)
}
