package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerProviderIsolation(t *testing.T) {
	l := NewRateLimiter(1, 1)

	assert.True(t, l.Allow("pyth"))
	assert.False(t, l.Allow("pyth"), "second immediate call exhausts the burst")
	assert.True(t, l.Allow("chainlink"), "a different provider has its own bucket")
}

func TestRateLimiter_BackOffBlocksAdmission(t *testing.T) {
	l := NewRateLimiter(100, 10)
	l.BackOff("band", 50*time.Millisecond)

	assert.False(t, l.Allow("band"))
	time.Sleep(80 * time.Millisecond)
	assert.True(t, l.Allow("band"))
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	_ = l.Allow("uma")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "uma")
	assert.Error(t, err)
}

func TestRateLimiter_Sweep(t *testing.T) {
	l := NewRateLimiter(10, 5)
	l.Allow("api3")

	ctx, cancel := context.WithCancel(context.Background())
	go l.Sweep(ctx, 10*time.Millisecond, 20*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	cancel()

	l.mu.Lock()
	_, exists := l.buckets["api3"]
	l.mu.Unlock()
	assert.False(t, exists, "stale bucket should have been swept")
}

// TestRateLimiter_ConcurrentAccessIsRaceFree exercises Wait/Allow on one
// goroutine against BackOff/Sweep on others, all hammering the same
// provider bucket's lastSeen/retryAfter fields, so `go test -race` catches
// any regression back to unguarded field access (§5).
func TestRateLimiter_ConcurrentAccessIsRaceFree(t *testing.T) {
	l := NewRateLimiter(1000, 100)
	ctx := context.Background()
	sweepCtx, stopSweep := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			l.Allow("chainlink")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = l.Wait(ctx, "chainlink")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			l.BackOff("chainlink", time.Microsecond)
		}
	}()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		l.Sweep(sweepCtx, time.Millisecond, time.Millisecond)
	}()

	wg.Wait()
	stopSweep()
	<-sweepDone
}
