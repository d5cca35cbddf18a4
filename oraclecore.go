// Package oraclecore is a thin composition root over config/oracle/routing/
// aggregator/enhancement/resolution: it wires a Config into a ready-to-use
// *resolution.Orchestrator with minimal boilerplate, the way the teacher's
// root agentflow.go wraps quick.New.
//
// Usage:
//
//	cfg := config.Load()
//	orch, collector, err := oraclecore.New(cfg, zap.NewExample())
//
// Most callers only need this package; the sub-packages remain independently
// usable for tests or custom wiring.
package oraclecore

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/aggregator"
	"github.com/oraclemesh/oraclecore/config"
	"github.com/oraclemesh/oraclecore/enhancement"
	"github.com/oraclemesh/oraclecore/internal/metrics"
	"github.com/oraclemesh/oraclecore/oracle"
	"github.com/oraclemesh/oraclecore/oracle/adapters/api3"
	"github.com/oraclemesh/oraclecore/oracle/adapters/band"
	"github.com/oraclemesh/oraclecore/oracle/adapters/chainlink"
	"github.com/oraclemesh/oraclecore/oracle/adapters/pyth"
	"github.com/oraclemesh/oraclecore/oracle/adapters/uma"
	"github.com/oraclemesh/oraclecore/resolution"
	"github.com/oraclemesh/oraclecore/routing"
	"github.com/oraclemesh/oraclecore/transport"
)

// MetricsNamespace is the Prometheus namespace every Collector built by New
// registers under.
const MetricsNamespace = "oraclecore"

// New builds a fully wired Orchestrator from cfg: a two-tier cache, one
// adapter per enabled provider in cfg.Providers, a metrics collector
// instrumenting every layer, and (when cfg.EnableAI and an LLM provider is
// configured) an Enhancer. The returned Collector is exposed so callers can
// register it with their own promhttp handler.
func New(cfg *config.Config, logger *zap.Logger) (*resolution.Orchestrator, *metrics.Collector, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if path := os.Getenv("ORACLE_CAPABILITIES_FILE"); path != "" {
		overlay, err := config.LoadCapabilitiesOverlay(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load capabilities overlay: %w", err)
		}
		routing.ApplyCapabilityOverlay(overlay)
	}

	collector := metrics.NewCollector(MetricsNamespace, logger)

	cache, err := buildCache(cfg, collector, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build cache: %w", err)
	}

	registry := oracle.NewRegistry(logger)
	for _, a := range buildAdapters(cfg, cache, collector, logger) {
		registry.Register(a)
	}

	agg := aggregator.New(aggregator.DefaultMaxConcurrency, logger)
	agg.SetMetrics(collector)

	var enhancer *enhancement.Enhancer
	if cfg.EnableAI && len(cfg.LLMProviders) > 0 {
		session := transport.NewSession(transport.SessionConfig{
			Provider: "llm-enhancement",
			Timeout:  cfg.Timeout,
			Logger:   logger,
		})
		enhancer = enhancement.New(toEnhancementProviders(cfg.LLMProviders), session, logger)
	}

	orch := resolution.New(registry, agg, enhancer, cfg.EnableAI, logger)
	orch.SetMetrics(collector)

	return orch, collector, nil
}

// buildCache composes the memory+file two-tier cache, instrumented with
// hit/miss counters under the single backend label "tiered". Caching is skipped entirely (a no-op
// pass-through below each adapter's "cache != nil" check never fires)
// when cfg.CacheEnabled is false.
func buildCache(cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (transport.Cache, error) {
	if !cfg.CacheEnabled {
		return nil, nil
	}

	mem, err := transport.NewMemoryCache(4096)
	if err != nil {
		return nil, err
	}
	dir := os.Getenv("ORACLE_CACHE_DIR")
	if dir == "" {
		dir = os.TempDir() + "/oraclecore-cache"
	}
	file, err := transport.NewFileCache(dir, 50*1024*1024, logger)
	if err != nil {
		return nil, err
	}

	tiered := transport.NewTieredCache(mem, file)
	return transport.NewInstrumentedCache("tiered", tiered, collector), nil
}

// buildAdapters constructs one adapter per enabled provider in
// cfg.Providers, wiring the circuit breaker's state-change callback into
// the metrics collector via each provider's own BreakerConfig.
func buildAdapters(cfg *config.Config, cache transport.Cache, collector *metrics.Collector, logger *zap.Logger) []oracle.Adapter {
	var out []oracle.Adapter

	if p, ok := cfg.Providers["chainlink"]; ok && p.Enabled {
		a := chainlink.New(p, cache, logger)
		a.SetMetrics(collector)
		out = append(out, a)
	}
	if p, ok := cfg.Providers["pyth"]; ok && p.Enabled {
		a := pyth.New(p, cache, logger)
		a.SetMetrics(collector)
		out = append(out, a)
	}
	if p, ok := cfg.Providers["band"]; ok && p.Enabled {
		a := band.New(p, cache, logger)
		a.SetMetrics(collector)
		out = append(out, a)
	}
	if p, ok := cfg.Providers["uma"]; ok && p.Enabled {
		a := uma.New(p, logger)
		a.SetMetrics(collector)
		out = append(out, a)
	}
	if p, ok := cfg.Providers["api3"]; ok && p.Enabled {
		a := api3.New(p, cache, logger)
		a.SetMetrics(collector)
		out = append(out, a)
	}

	return out
}

func toEnhancementProviders(in []config.LLMProviderConfig) []enhancement.LLMProviderConfig {
	out := make([]enhancement.LLMProviderConfig, len(in))
	for i, p := range in {
		out[i] = enhancement.LLMProviderConfig{Name: p.Name, Endpoint: p.Endpoint, APIKey: p.APIKey, Model: p.Model}
	}
	return out
}
