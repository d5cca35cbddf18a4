package transport

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/types"
)

// RetryPolicy configures the retry primitive shared by every adapter and the
// enhancement HTTP client. Delay for attempt n (n>=1) is
// min(MaxDelay, InitialDelay*Multiplier^(n-1)), scaled by a
// uniform-in-[0.5,1.0) multiplier when Jitter is set (§4.A).
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	// RetriableKinds restricts retries to these error kinds. Empty means
	// "use the default retriable kinds" (rate limit, timeout, network,
	// provider) — i.e. 5xx, timeouts, connection-reset and 429 retry;
	// other 4xx do not.
	RetriableKinds []types.ErrorCode
	OnRetry        func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy returns the policy applied when none is supplied.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retryer executes a function, retrying per its policy.
type Retryer interface {
	Do(ctx context.Context, fn func() error) error
	DoWithResult(ctx context.Context, fn func() (any, error)) (any, error)
}

// backoffRetryer is an exponential-backoff Retryer.
type backoffRetryer struct {
	policy *RetryPolicy
	logger *zap.Logger
}

// NewBackoffRetryer creates an exponential-backoff retryer.
func NewBackoffRetryer(policy *RetryPolicy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = 1 * time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	if policy.Multiplier < 1.0 {
		policy.Multiplier = 2.0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backoffRetryer{policy: policy, logger: logger}
}

func (r *backoffRetryer) Do(ctx context.Context, fn func() error) error {
	_, err := r.DoWithResult(ctx, func() (any, error) { return nil, fn() })
	return err
}

func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func() (any, error)) (any, error) {
	var lastErr error
	var result any

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)

			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, lastErr = fn()
		if lastErr == nil {
			if attempt > 0 {
				r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}

		if !r.isRetryable(lastErr) {
			r.logger.Debug("error not retriable", zap.Error(lastErr))
			return nil, lastErr
		}

		if attempt >= r.policy.MaxRetries {
			break
		}
	}

	r.logger.Warn("retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("failed after %d retries: %w", r.policy.MaxRetries, lastErr)
}

// calculateDelay applies exponential backoff, then scales the result by
// 0.5+rand[0,0.5) when jitter is enabled, per §4.A: "delay · (0.5 +
// rand[0,0.5))". Unjittered delay for attempt n (n>=1) is
// min(MaxDelay, InitialDelay*Multiplier^(n-1)); jittered delay is a uniform
// sample from [0.5×, 1.0×) of that value.
func (r *backoffRetryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(attempt-1))
	if delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}
	if r.policy.Jitter {
		delay *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(delay)
}

// isRetryable classifies err against the policy's retriable kinds. A
// non-*types.Error is treated as retriable by default — adapters that want
// precise control wrap their errors in *types.Error.
func (r *backoffRetryer) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	oracleErr, ok := err.(*types.Error)
	if !ok {
		return true
	}
	if len(r.policy.RetriableKinds) == 0 {
		return types.IsRetriableKind(oracleErr.Code)
	}
	for _, k := range r.policy.RetriableKinds {
		if oracleErr.Code == k {
			return true
		}
	}
	return false
}
