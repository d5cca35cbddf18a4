package transport

import (
	"context"
	"time"
)

// cacheMetricsSink is the subset of internal/metrics.Collector that
// InstrumentedCache needs. Declared locally to keep transport free of a
// hard dependency on the metrics package.
type cacheMetricsSink interface {
	RecordCacheHit(backend string)
	RecordCacheMiss(backend string)
}

// InstrumentedCache decorates a Cache with hit/miss counters, labeled by
// backend name. Bootstrap wiring wraps the memory+file TieredCache once
// under the label "tiered", so hits and misses are not split by tier;
// callers otherwise use it exactly like any other Cache.
type InstrumentedCache struct {
	backend string
	inner   Cache
	metrics cacheMetricsSink
}

// NewInstrumentedCache wraps inner, recording hits and misses under backend.
func NewInstrumentedCache(backend string, inner Cache, metrics cacheMetricsSink) *InstrumentedCache {
	return &InstrumentedCache{backend: backend, inner: inner, metrics: metrics}
}

func (c *InstrumentedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok, err := c.inner.Get(ctx, key)
	if err == nil {
		if ok {
			c.metrics.RecordCacheHit(c.backend)
		} else {
			c.metrics.RecordCacheMiss(c.backend)
		}
	}
	return val, ok, err
}

func (c *InstrumentedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, key, value, ttl)
}

func (c *InstrumentedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *InstrumentedCache) Clear(ctx context.Context) error {
	return c.inner.Clear(ctx)
}

func (c *InstrumentedCache) Exists(ctx context.Context, key string) (bool, error) {
	return c.inner.Exists(ctx, key)
}
