// Package oracle defines the uniform adapter contract every oracle provider
// implements and a registry for selecting among them.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/oraclemesh/oraclecore/types"
)

// Adapter normalizes one oracle provider behind the canonical request/
// response contract.
type Adapter interface {
	Name() string
	Version() string
	SupportedCategories() map[types.DataCategory]bool

	Query(ctx context.Context, req types.CanonicalOracleRequest) (types.CanonicalOracleResponse, error)
	HealthCheck(ctx context.Context) (HealthStatus, error)

	EstimateConfidence(data any, req types.CanonicalOracleRequest) float64
	EstimateCost(req types.CanonicalOracleRequest) float64
	ResponseMetadata(req types.CanonicalOracleRequest) map[string]any

	Stats() StatsSnapshot
}

// HealthStatus is one adapter's current health snapshot.
type HealthStatus struct {
	Healthy           bool
	ResponseTimeMs    int64
	ErrorRate         float64
	LastError         string
	UptimePercentage  float64
}

// AdapterStats is the mutable request/error counter an adapter owns.
// Only the owning adapter writes to it; readers (health checks, registry
// ranking) take a snapshot via Snapshot.
type AdapterStats struct {
	mu           sync.Mutex
	requests     int64
	errors       int64
	totalLatency time.Duration
	lastError    string
}

// RecordSuccess records one successful query with its latency.
func (s *AdapterStats) RecordSuccess(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	s.totalLatency += latency
}

// RecordFailure records one failed query.
func (s *AdapterStats) RecordFailure(latency time.Duration, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	s.errors++
	s.totalLatency += latency
	s.lastError = errMsg
}

// StatsSnapshot is a point-in-time, lock-free copy of AdapterStats.
type StatsSnapshot struct {
	Requests       int64
	Errors         int64
	SuccessRate    float64
	AvgLatencyMs   int64
	LastError      string
}

// Snapshot returns a consistent copy of the current counters.
func (s *AdapterStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{Requests: s.requests, Errors: s.errors, LastError: s.lastError}
	if s.requests > 0 {
		snap.SuccessRate = float64(s.requests-s.errors) / float64(s.requests)
		snap.AvgLatencyMs = s.totalLatency.Milliseconds() / s.requests
	} else {
		snap.SuccessRate = 1.0
	}
	return snap
}
