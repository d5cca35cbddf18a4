package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/oraclemesh/oraclecore/transport"
	"github.com/oraclemesh/oraclecore/types"
)

// QueryExecutor is what a concrete provider adapter implements; Base handles
// the request validation, timing, stats and response-shaping every adapter
// otherwise duplicates.
type QueryExecutor interface {
	Execute(ctx context.Context, req types.CanonicalOracleRequest) (any, error)
	CalculateConfidence(data any, req types.CanonicalOracleRequest) float64
	CalculateCost(req types.CanonicalOracleRequest) float64
	ResponseMetadata(req types.CanonicalOracleRequest) map[string]any
	HealthCheckQuery(ctx context.Context) error
}

// metricsSink is the subset of internal/metrics.Collector that Base needs.
// Declared locally so oracle stays free of a hard dependency on the metrics
// package; the bootstrap wiring supplies the concrete *metrics.Collector.
type metricsSink interface {
	RecordAdapterQuery(provider, category, status string, duration time.Duration, costUSD float64)
	RecordBreakerTransition(provider, from, to string, stateValue float64)
}

// Base implements the parts of Adapter that are identical across providers,
// mirroring how every provider-specific adapter wraps a shared query/stats
// envelope around its own upstream call.
type Base struct {
	name       string
	version    string
	categories map[types.DataCategory]bool
	stats      AdapterStats
	exec       QueryExecutor
	metrics    metricsSink
}

// NewBase wires a concrete adapter's QueryExecutor into the shared envelope.
func NewBase(name, version string, categories map[types.DataCategory]bool, exec QueryExecutor) *Base {
	return &Base{name: name, version: version, categories: categories, exec: exec}
}

// SetMetrics attaches a metrics sink; every Query call thereafter reports its
// provider, category, status, duration and cost. Safe to call once during
// bootstrap before any adapter sees traffic.
func (b *Base) SetMetrics(m metricsSink) { b.metrics = m }

// OnBreakerStateChange is a transport.BreakerConfig.OnStateChange callback
// that reports the transition through whatever metrics sink is attached at
// the time the breaker fires. Adapters wire this in at construction, before
// SetMetrics is ever called, so it must tolerate b.metrics being nil.
func (b *Base) OnBreakerStateChange(from, to transport.State) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordBreakerTransition(b.name, from.String(), to.String(), breakerStateValue(to))
}

// breakerStateValue maps a breaker state to the numeric gauge value the
// metrics collector exports.
func breakerStateValue(s transport.State) float64 {
	switch s {
	case transport.StateOpen:
		return 2
	case transport.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

func (b *Base) Name() string    { return b.name }
func (b *Base) Version() string { return b.version }

func (b *Base) SupportedCategories() map[types.DataCategory]bool { return b.categories }

func (b *Base) Stats() StatsSnapshot { return b.stats.Snapshot() }

// Query validates req, executes it under a timeout, and records the outcome.
// Validation failures surface as a Go error; upstream/provider failures are
// carried in the response's Error field so callers can still see latency and
// partial metadata for a failed attempt.
func (b *Base) Query(ctx context.Context, req types.CanonicalOracleRequest) (types.CanonicalOracleResponse, error) {
	if req.Query == "" {
		return types.CanonicalOracleResponse{}, types.NewError(types.ErrValidation, "query cannot be empty").WithProvider(b.name)
	}
	if !b.categories[req.DataType] {
		return types.CanonicalOracleResponse{}, types.NewError(types.ErrValidation,
			fmt.Sprintf("unsupported data type: %s", req.DataType)).WithProvider(b.name)
	}

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	data, err := b.exec.Execute(qctx, req)
	latency := time.Since(start)

	if err != nil {
		oerr := asOracleError(err, b.name)
		b.stats.RecordFailure(latency, oerr.Message)
		if b.metrics != nil {
			b.metrics.RecordAdapterQuery(b.name, string(req.DataType), "error", latency, 0)
		}
		return types.CanonicalOracleResponse{
			Provider:      b.name,
			TimestampUnix: time.Now().UnixMilli(),
			LatencyMs:     latency.Milliseconds(),
			Error:         oerr,
		}, nil
	}

	b.stats.RecordSuccess(latency)
	cost := b.exec.CalculateCost(req)
	if b.metrics != nil {
		b.metrics.RecordAdapterQuery(b.name, string(req.DataType), "ok", latency, cost)
	}
	return types.CanonicalOracleResponse{
		Data:          data,
		Provider:      b.name,
		TimestampUnix: time.Now().UnixMilli(),
		Confidence:    b.exec.CalculateConfidence(data, req),
		LatencyMs:     latency.Milliseconds(),
		CostUSD:       cost,
		Metadata:      b.exec.ResponseMetadata(req),
	}, nil
}

// HealthCheck runs the adapter's cheap liveness probe and reports it
// alongside the adapter's running error rate.
func (b *Base) HealthCheck(ctx context.Context) (HealthStatus, error) {
	start := time.Now()
	err := b.exec.HealthCheckQuery(ctx)
	responseTime := time.Since(start).Milliseconds()
	snap := b.stats.Snapshot()

	if err != nil {
		return HealthStatus{
			Healthy:        false,
			ResponseTimeMs: responseTime,
			ErrorRate:      100.0,
			LastError:      err.Error(),
		}, nil
	}

	return HealthStatus{
		Healthy:          true,
		ResponseTimeMs:   responseTime,
		ErrorRate:        (1 - snap.SuccessRate) * 100,
		LastError:        snap.LastError,
		UptimePercentage: snap.SuccessRate * 100,
	}, nil
}

func (b *Base) EstimateConfidence(data any, req types.CanonicalOracleRequest) float64 {
	return b.exec.CalculateConfidence(data, req)
}

func (b *Base) EstimateCost(req types.CanonicalOracleRequest) float64 {
	return b.exec.CalculateCost(req)
}

func (b *Base) ResponseMetadata(req types.CanonicalOracleRequest) map[string]any {
	return b.exec.ResponseMetadata(req)
}

// asOracleError normalizes any error from a QueryExecutor into a *types.Error
// carrying this adapter's name, preserving an already-typed error's kind.
func asOracleError(err error, provider string) *types.Error {
	if oe, ok := err.(*types.Error); ok {
		if oe.Provider == "" {
			oe.Provider = provider
		}
		return oe
	}
	return types.NewError(types.ErrProvider, err.Error()).WithProvider(provider).WithRetryable(true)
}
