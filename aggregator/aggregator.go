// Package aggregator fans out a canonical oracle query to two or more
// provider adapters in parallel, then computes a consensus value and flags
// cross-provider discrepancy, per SPEC_FULL.md §4.H'.
package aggregator

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/oraclemesh/oraclecore/oracle"
	"github.com/oraclemesh/oraclecore/types"
)

// DefaultMaxConcurrency bounds parallel fan-out (§4.H default of 8).
const DefaultMaxConcurrency = 8

// AggregationMethod names how AggregatedOracleData.AggregatedValue was
// derived.
type AggregationMethod string

const (
	MethodMedian AggregationMethod = "median"
	MethodLatest AggregationMethod = "latest"
)

// ProviderValue is one adapter's contribution to an aggregation round.
type ProviderValue struct {
	Provider   string
	Value      any
	Confidence float64
	Timestamp  int64 // unix milliseconds
}

// AggregatedOracleData is the aggregator's output record (§4.H).
type AggregatedOracleData struct {
	AggregationMethod  AggregationMethod
	AggregatedValue    any
	IndividualValues   map[string]any
	Confidence         float64
	DiscrepancyDetected bool
	Spread             float64
	Timestamp          int64
}

// metricsSink is the subset of internal/metrics.Collector that Aggregator
// needs. Declared locally so aggregator stays free of a hard dependency on
// the metrics package.
type metricsSink interface {
	RecordDiscrepancy(category string)
}

// Aggregator fans out queries across a bounded set of adapters and
// aggregates their responses.
type Aggregator struct {
	maxConcurrency int
	logger         *zap.Logger
	metrics        metricsSink
}

// New builds an Aggregator. maxConcurrency<=0 uses DefaultMaxConcurrency.
func New(maxConcurrency int, logger *zap.Logger) *Aggregator {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{maxConcurrency: maxConcurrency, logger: logger}
}

// SetMetrics attaches a metrics sink; every Fetch call thereafter reports a
// discrepancy count for its request category.
func (a *Aggregator) SetMetrics(m metricsSink) { a.metrics = m }

// Fetch queries every adapter in adapters with req, bounding concurrency
// with a semaphore, and aggregates the successful responses. Adapters whose
// response carries a non-nil Error are dropped from the consensus (§4.H
// "drop those with error != nil"); a Go error return is reserved for
// context cancellation or programmer error, never for a single adapter's
// upstream failure.
func (a *Aggregator) Fetch(ctx context.Context, adapters []oracle.Adapter, req types.CanonicalOracleRequest) (AggregatedOracleData, error) {
	sem := semaphore.NewWeighted(int64(a.maxConcurrency))
	g, gctx := errgroup.WithContext(ctx)

	results := make([]*ProviderValue, len(adapters))
	for i, ad := range adapters {
		i, ad := i, ad
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil // cancellation; leave results[i] nil
			}
			defer sem.Release(1)

			resp, err := ad.Query(gctx, req)
			if err != nil {
				a.logger.Warn("aggregator adapter query errored", zap.String("provider", ad.Name()), zap.Error(err))
				return nil
			}
			if resp.Error != nil {
				a.logger.Debug("aggregator dropping failed provider response",
					zap.String("provider", ad.Name()), zap.String("error_kind", string(resp.Error.Code)))
				return nil
			}
			results[i] = &ProviderValue{
				Provider:   ad.Name(),
				Value:      resp.Data,
				Confidence: resp.Confidence,
				Timestamp:  resp.TimestampUnix,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AggregatedOracleData{}, err
	}

	var collected []ProviderValue
	for _, r := range results {
		if r != nil {
			collected = append(collected, *r)
		}
	}

	aggregated := Aggregate(collected)
	if a.metrics != nil && aggregated.DiscrepancyDetected {
		a.metrics.RecordDiscrepancy(string(req.DataType))
	}
	return aggregated, nil
}

// Aggregate computes consensus over already-collected provider values,
// implementing §4.H's median/spread/discrepancy rules directly (used both
// by Fetch and by callers driving their own fan-out, e.g. tests).
func Aggregate(values []ProviderValue) AggregatedOracleData {
	if len(values) == 0 {
		return AggregatedOracleData{AggregationMethod: MethodLatest}
	}

	individual := make(map[string]any, len(values))
	maxTimestamp := values[0].Timestamp
	for _, v := range values {
		individual[v.Provider] = v.Value
		if v.Timestamp > maxTimestamp {
			maxTimestamp = v.Timestamp
		}
	}

	if numeric, ok := asNumeric(values); ok {
		return aggregateNumeric(numeric, individual, maxTimestamp)
	}
	return aggregateLatest(values, individual, maxTimestamp)
}

// asNumeric reports whether every value is a float64 (or an int/Pyth-style
// wrapper already normalized by the caller) and returns the parallel slice
// of numeric values paired with their confidences.
func asNumeric(values []ProviderValue) ([]numericPoint, bool) {
	points := make([]numericPoint, 0, len(values))
	for _, v := range values {
		f, ok := toFloat64(v.Value)
		if !ok {
			return nil, false
		}
		points = append(points, numericPoint{value: f, confidence: v.Confidence})
	}
	return points, true
}

type numericPoint struct {
	value      float64
	confidence float64
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// aggregateNumeric implements §4.H's median/spread/discrepancy rule: spread
// = (max-min)/max; spread>0.05 sets discrepancy_detected and floors
// confidence at min(confidences)-0.15 (floor 0); otherwise confidence is
// the median confidence, floored at 0.8 when spread<0.01.
func aggregateNumeric(points []numericPoint, individual map[string]any, timestamp int64) AggregatedOracleData {
	values := make([]float64, len(points))
	confidences := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.value
		confidences[i] = p.confidence
	}

	med := median(values)
	spread := 0.0
	maxV := maxOf(values)
	if maxV > 0 {
		spread = (maxV - minOf(values)) / maxV
	}

	discrepancy := spread > 0.05
	var confidence float64
	if discrepancy {
		confidence = minOf(confidences) - 0.15
		if confidence < 0 {
			confidence = 0
		}
	} else {
		confidence = median(confidences)
		if spread < 0.01 && confidence < 0.8 {
			confidence = 0.8
		}
	}

	return AggregatedOracleData{
		AggregationMethod:   MethodMedian,
		AggregatedValue:     med,
		IndividualValues:    individual,
		Confidence:          confidence,
		DiscrepancyDetected: discrepancy,
		Spread:              spread,
		Timestamp:           timestamp,
	}
}

// aggregateLatest picks the most-recently-timestamped non-numeric value.
func aggregateLatest(values []ProviderValue, individual map[string]any, timestamp int64) AggregatedOracleData {
	latest := values[0]
	for _, v := range values[1:] {
		if v.Timestamp > latest.Timestamp {
			latest = v
		}
	}
	return AggregatedOracleData{
		AggregationMethod: MethodLatest,
		AggregatedValue:   latest.Value,
		IndividualValues:  individual,
		Confidence:        latest.Confidence,
		Timestamp:         timestamp,
	}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
