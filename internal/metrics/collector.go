// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 Collector
// =============================================================================

// Collector aggregates Prometheus instrumentation for the oracle routing
// core: adapter calls, cache behavior, circuit breaker transitions and
// routing/aggregation decisions.
type Collector struct {
	adapterRequestsTotal   *prometheus.CounterVec
	adapterRequestDuration *prometheus.HistogramVec
	adapterCost            *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	breakerTransitions *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec

	routingDecisionsTotal *prometheus.CounterVec
	routingConfidence     *prometheus.HistogramVec

	aggregationDiscrepancies *prometheus.CounterVec

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewCollector creates a metrics collector under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.adapterRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_requests_total",
			Help:      "Total number of provider adapter queries",
		},
		[]string{"provider", "category", "status"},
	)

	c.adapterRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_request_duration_seconds",
			Help:      "Provider adapter query duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"provider", "category"},
	)

	c.adapterCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_cost_usd_total",
			Help:      "Total estimated oracle cost in USD",
		},
		[]string{"provider"},
	)

	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_backend"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_backend"},
	)

	c.breakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"provider", "from_state", "to_state"},
	)

	c.breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed,1=half_open,2=open)",
		},
		[]string{"provider"},
	)

	c.routingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Total number of routing decisions",
		},
		[]string{"category", "selected_provider", "can_resolve"},
	)

	c.routingConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "routing_confidence",
			Help:      "Routing confidence score distribution",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"category"},
	)

	c.aggregationDiscrepancies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_discrepancies_total",
			Help:      "Total number of aggregations flagged with a discrepancy",
		},
		[]string{"category"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordAdapterQuery records one provider adapter query.
func (c *Collector) RecordAdapterQuery(provider, category, status string, duration time.Duration, costUSD float64) {
	c.adapterRequestsTotal.WithLabelValues(provider, category, status).Inc()
	c.adapterRequestDuration.WithLabelValues(provider, category).Observe(duration.Seconds())
	if costUSD > 0 {
		c.adapterCost.WithLabelValues(provider).Add(costUSD)
	}
}

// RecordCacheHit records a cache hit for the given backend (bootstrap
// wiring uses "tiered").
func (c *Collector) RecordCacheHit(backend string) {
	c.cacheHits.WithLabelValues(backend).Inc()
}

// RecordCacheMiss records a cache miss for the given backend.
func (c *Collector) RecordCacheMiss(backend string) {
	c.cacheMisses.WithLabelValues(backend).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
func (c *Collector) RecordBreakerTransition(provider, from, to string, stateValue float64) {
	c.breakerTransitions.WithLabelValues(provider, from, to).Inc()
	c.breakerState.WithLabelValues(provider).Set(stateValue)
}

// RecordRoutingDecision records the outcome of one routing decision.
func (c *Collector) RecordRoutingDecision(category, selectedProvider string, canResolve bool, confidence float64) {
	c.routingDecisionsTotal.WithLabelValues(category, selectedProvider, boolLabel(canResolve)).Inc()
	c.routingConfidence.WithLabelValues(category).Observe(confidence)
}

// RecordDiscrepancy records one aggregator discrepancy flag.
func (c *Collector) RecordDiscrepancy(category string) {
	c.aggregationDiscrepancies.WithLabelValues(category).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
