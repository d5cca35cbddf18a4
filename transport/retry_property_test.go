package transport

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Property (§8): for a retry sequence with max_attempts=n, base=b, factor=f,
// total elapsed sleep in the no-jitter setting equals b*(f^n-1)/(f-1); with
// jitter, elapsed in [0.5*noJitter, noJitter].
func TestProperty_RetryElapsedTimeLaw(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("no-jitter elapsed matches the closed-form geometric sum", prop.ForAll(
		func(base int, factor float64, n int) bool {
			policy := &RetryPolicy{
				MaxRetries:   n,
				InitialDelay: time.Duration(base) * time.Millisecond,
				MaxDelay:     1000 * time.Hour,
				Multiplier:   factor,
				Jitter:       false,
			}
			retryer := NewBackoffRetryer(policy, zap.NewNop()).(*backoffRetryer)

			var elapsed time.Duration
			for attempt := 1; attempt <= n; attempt++ {
				elapsed += retryer.calculateDelay(attempt)
			}

			b := float64(base) * float64(time.Millisecond)
			want := b * (pow(factor, n) - 1) / (factor - 1)
			got := float64(elapsed)

			return withinRelTolerance(got, want, 1e-4)
		},
		gen.IntRange(1, 200),
		gen.Float64Range(1.1, 3.0),
		gen.IntRange(1, 5),
	))

	properties.Property("jittered elapsed falls within [0.5x, 1.0x] of the no-jitter elapsed", prop.ForAll(
		func(base int, factor float64, n int) bool {
			noJitterPolicy := &RetryPolicy{
				MaxRetries:   n,
				InitialDelay: time.Duration(base) * time.Millisecond,
				MaxDelay:     1000 * time.Hour,
				Multiplier:   factor,
				Jitter:       false,
			}
			noJitterRetryer := NewBackoffRetryer(noJitterPolicy, zap.NewNop()).(*backoffRetryer)
			var noJitterElapsed time.Duration
			for attempt := 1; attempt <= n; attempt++ {
				noJitterElapsed += noJitterRetryer.calculateDelay(attempt)
			}

			jitterPolicy := &RetryPolicy{
				MaxRetries:   n,
				InitialDelay: time.Duration(base) * time.Millisecond,
				MaxDelay:     1000 * time.Hour,
				Multiplier:   factor,
				Jitter:       true,
			}
			jitterRetryer := NewBackoffRetryer(jitterPolicy, zap.NewNop()).(*backoffRetryer)

			for trial := 0; trial < 20; trial++ {
				var jitteredElapsed time.Duration
				for attempt := 1; attempt <= n; attempt++ {
					jitteredElapsed += jitterRetryer.calculateDelay(attempt)
				}
				lower := float64(noJitterElapsed) * 0.5
				upper := float64(noJitterElapsed) * 1.0
				got := float64(jitteredElapsed)
				if got < lower*(1-1e-4) || got > upper*(1+1e-4) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 200),
		gen.Float64Range(1.1, 3.0),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func withinRelTolerance(got, want, tol float64) bool {
	if want == 0 {
		return got == 0
	}
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff/want <= tol
}
