package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/types"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a per-adapter circuit breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that trips the
	// breaker from closed to open. Default 5.
	Threshold int
	// Timeout bounds a single call.
	Timeout time.Duration
	// ResetTimeout is how long the breaker stays open before probing
	// with a half-open call. Default 60s.
	ResetTimeout time.Duration
	// HalfOpenMaxCalls caps concurrent probe calls while half-open.
	HalfOpenMaxCalls int
	OnStateChange    func(from State, to State)
}

// DefaultBreakerConfig matches the routing core's §4.A defaults.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		Threshold:        5,
		Timeout:          30 * time.Second,
		ResetTimeout:     60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker guards a single adapter's outbound calls with a
// closed/open/half-open state machine.
type CircuitBreaker interface {
	Call(ctx context.Context, fn func() error) error
	CallWithResult(ctx context.Context, fn func() (any, error)) (any, error)
	State() State
	Reset()
}

type breaker struct {
	name   string
	config *BreakerConfig
	logger *zap.Logger

	mu                sync.RWMutex
	state             State
	failureCount      int
	lastFailureTime   time.Time
	halfOpenCallCount int
}

// NewCircuitBreaker creates a breaker identified by name (typically the
// provider tag) for logging and state-change callbacks.
func NewCircuitBreaker(name string, config *BreakerConfig, logger *zap.Logger) CircuitBreaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &breaker{name: name, config: config, logger: logger, state: StateClosed}
}

func (b *breaker) Call(ctx context.Context, fn func() error) error {
	_, err := b.CallWithResult(ctx, func() (any, error) { return nil, fn() })
	return err
}

func (b *breaker) CallWithResult(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := b.beforeCall(); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	resultCh := make(chan callResult, 1)
	go func() {
		result, err := fn()
		resultCh <- callResult{result: result, err: err}
	}()

	select {
	case <-callCtx.Done():
		err := types.NewError(types.ErrTimeout, "adapter call timed out").
			WithProvider(b.name).WithCause(callCtx.Err()).WithRetryable(true)
		b.afterCall(false)
		return nil, err

	case res := <-resultCh:
		// Requests the caller never should have made (bad input,
		// auth failure) don't count against the breaker — only
		// upstream unavailability does. Either way the error itself
		// still reaches the caller.
		countsAsFailure := res.err != nil && !isNonBreakerError(res.err)
		b.afterCall(!countsAsFailure)
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	}
}

type callResult struct {
	result any
	err    error
}

// isNonBreakerError reports whether err reflects a caller mistake rather
// than upstream unavailability, and so should not trip the breaker.
func isNonBreakerError(err error) bool {
	oracleErr, ok := err.(*types.Error)
	if !ok {
		return false
	}
	switch oracleErr.Code {
	case types.ErrValidation, types.ErrAuth, types.ErrUnsupported, types.ErrRouting:
		return true
	default:
		return false
	}
}

func (b *breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(b.lastFailureTime) > b.config.ResetTimeout {
			b.setState(StateHalfOpen)
			b.halfOpenCallCount = 0
			b.logger.Info("circuit breaker entering half-open", zap.String("provider", b.name))
			return nil
		}
		return types.NewError(types.ErrProvider, "circuit breaker open").
			WithProvider(b.name).WithRetryable(true)

	case StateHalfOpen:
		if b.halfOpenCallCount >= b.config.HalfOpenMaxCalls {
			return types.NewError(types.ErrProvider, "too many calls while half-open").
				WithProvider(b.name).WithRetryable(true)
		}
		b.halfOpenCallCount++
		return nil

	default:
		return fmt.Errorf("unknown circuit breaker state: %v", b.state)
	}
}

func (b *breaker) afterCall(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if success {
		b.onSuccess()
	} else {
		b.onFailure()
	}
}

func (b *breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.logger.Info("circuit breaker recovered",
			zap.String("provider", b.name),
			zap.Int("half_open_calls", b.halfOpenCallCount))
		b.setState(StateClosed)
		b.failureCount = 0
		b.halfOpenCallCount = 0
	case StateOpen:
		b.logger.Warn("success reported while open", zap.String("provider", b.name))
	}
}

func (b *breaker) onFailure() {
	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.Threshold {
			b.logger.Warn("circuit breaker tripped",
				zap.String("provider", b.name),
				zap.Int("failure_count", b.failureCount),
				zap.Int("threshold", b.config.Threshold))
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.logger.Warn("half-open probe failed, reopening",
			zap.String("provider", b.name))
		b.setState(StateOpen)
		b.halfOpenCallCount = 0
	case StateOpen:
		b.logger.Warn("failure reported while open", zap.String("provider", b.name))
	}
}

func (b *breaker) setState(newState State) {
	oldState := b.state
	b.state = newState
	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(oldState, newState)
	}
}

func (b *breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldState := b.state
	b.state = StateClosed
	b.failureCount = 0
	b.halfOpenCallCount = 0

	b.logger.Info("circuit breaker reset", zap.String("provider", b.name), zap.String("from_state", oldState.String()))

	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(oldState, StateClosed)
	}
}
