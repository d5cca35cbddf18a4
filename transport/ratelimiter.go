package transport

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token-bucket limiter keyed by provider, mirroring the
// per-visitor pattern used for HTTP ingress rate limiting but applied to
// outbound adapter calls: each provider gets its own bucket so one noisy
// upstream can't starve another's quota.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*providerBucket
	rps      float64
	burst    int
}

// providerBucket carries its own lock: the rate.Limiter it wraps is already
// safe for concurrent use, but lastSeen/retryAfter are read by Wait/Allow/
// Sweep and written by Wait/Allow/BackOff concurrently, so every access goes
// through touch/deadline/backOff/idleFor below rather than the bare fields
// (§5: "RateLimiter: guarded by an internal lock").
type providerBucket struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	lastSeen   time.Time
	retryAfter time.Time // honored from a 429 Retry-After header
}

func (b *providerBucket) touch() {
	b.mu.Lock()
	b.lastSeen = time.Now()
	b.mu.Unlock()
}

func (b *providerBucket) deadline() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.retryAfter
}

func (b *providerBucket) backOff(retryAfter time.Duration) {
	b.mu.Lock()
	b.retryAfter = time.Now().Add(retryAfter)
	b.mu.Unlock()
}

func (b *providerBucket) idleFor() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Since(b.lastSeen)
}

// NewRateLimiter creates a limiter with rps requests/sec and the given burst
// applied uniformly to every provider key on first use.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*providerBucket),
		rps:     rps,
		burst:   burst,
	}
}

// Wait blocks until provider's bucket admits a request or ctx is done,
// also respecting any outstanding Retry-After deadline set via BackOff.
func (l *RateLimiter) Wait(ctx context.Context, provider string) error {
	for {
		b := l.bucket(provider)
		b.touch()

		wait := time.Until(b.deadline())
		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}
		return b.limiter.Wait(ctx)
	}
}

// Allow is the non-blocking counterpart of Wait.
func (l *RateLimiter) Allow(provider string) bool {
	b := l.bucket(provider)
	if time.Now().Before(b.deadline()) {
		return false
	}
	b.touch()
	return b.limiter.Allow()
}

// BackOff records a server-specified retry deadline (a 429's Retry-After),
// suspending admission for provider until it passes.
func (l *RateLimiter) BackOff(provider string, retryAfter time.Duration) {
	b := l.bucket(provider)
	b.backOff(retryAfter)
}

func (l *RateLimiter) bucket(provider string) *providerBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[provider]
	if !ok {
		b = &providerBucket{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.buckets[provider] = b
	}
	return b
}

// Sweep runs until ctx is cancelled, periodically dropping buckets that
// haven't been touched in staleAfter so long-lived processes don't
// accumulate one bucket per ephemeral caller identity.
func (l *RateLimiter) Sweep(ctx context.Context, interval, staleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if b.idleFor() > staleAfter {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
