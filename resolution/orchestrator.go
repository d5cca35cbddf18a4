// Package resolution composes the classifier, routing engine, LLM
// enhancer, and aggregator into the routing core's top-level entry points:
// route_question, get_price, and resolve, per SPEC_FULL.md §4.I'.
package resolution

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/aggregator"
	"github.com/oraclemesh/oraclecore/enhancement"
	"github.com/oraclemesh/oraclecore/oracle"
	"github.com/oraclemesh/oraclecore/routing"
	"github.com/oraclemesh/oraclecore/types"
)

// tracer emits one span per top-level orchestrator operation, mirroring the
// teacher's cmd/agentflow/middleware.go OTel usage but over the routing
// core's three entry points rather than HTTP requests.
var tracer = otel.Tracer("oraclecore/resolution")

// metricsSink is the subset of internal/metrics.Collector that Orchestrator
// needs. Declared locally so resolution stays free of a hard dependency on
// the metrics package.
type metricsSink interface {
	RecordRoutingDecision(category, selectedProvider string, canResolve bool, confidence float64)
}

// Orchestrator is the top-level composition root: classifier+routing are
// pure functions it calls directly; the enhancer and aggregator are
// injected so callers can run without AI enhancement configured (per
// ORACLE_ENABLE_AI) or with a reduced adapter set in tests.
type Orchestrator struct {
	registry  *oracle.Registry
	aggregate *aggregator.Aggregator
	enhancer  *enhancement.Enhancer
	enableAI  bool
	logger    *zap.Logger
	metrics   metricsSink
}

// New builds an Orchestrator. enhancer may be nil (enhancement disabled);
// aggregate may be nil, in which case a default-concurrency Aggregator is
// created.
func New(registry *oracle.Registry, aggregate *aggregator.Aggregator, enhancer *enhancement.Enhancer, enableAI bool, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if aggregate == nil {
		aggregate = aggregator.New(aggregator.DefaultMaxConcurrency, logger)
	}
	return &Orchestrator{registry: registry, aggregate: aggregate, enhancer: enhancer, enableAI: enableAI, logger: logger}
}

// SetMetrics attaches a metrics sink; every RouteQuestion call thereafter
// reports the final (possibly enhanced) routing decision.
func (o *Orchestrator) SetMetrics(m metricsSink) { o.metrics = m }

// RouteQuestion runs the classifier and routing engine (E->F), then
// conditionally enhances the result via the LLM gate (G), per §4.I.
func (o *Orchestrator) RouteQuestion(ctx context.Context, req types.RoutingRequest) types.RoutingResponse {
	ctx, span := tracer.Start(ctx, "RouteQuestion", trace.WithAttributes(
		attribute.String("oracle.category_hint", string(req.CategoryHint)),
	))
	defer span.End()

	basic := routing.Route(req)
	if !basic.CanResolve || !o.enableAI || o.enhancer == nil || !enhancement.ShouldEnhance(req.Question, basic) {
		o.recordDecision(basic)
		span.SetAttributes(attribute.Bool("oracle.enhanced", false), attribute.String("oracle.selected", string(basic.Selected)))
		return basic
	}

	candidates := candidateSet(basic)
	enhanced := o.enhancer.Enhance(ctx, req.Question, basic, candidates)
	o.logger.Info("routing decision enhanced",
		zap.String("question", req.Question),
		zap.String("selected", string(enhanced.Selected)),
		zap.Float64("confidence", enhanced.Confidence))
	o.recordDecision(enhanced)
	span.SetAttributes(attribute.Bool("oracle.enhanced", true), attribute.String("oracle.selected", string(enhanced.Selected)))
	return enhanced
}

func (o *Orchestrator) recordDecision(resp types.RoutingResponse) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordRoutingDecision(string(resp.DataType), string(resp.Selected), resp.CanResolve, resp.Confidence)
}

func candidateSet(resp types.RoutingResponse) map[types.Provider]bool {
	set := map[types.Provider]bool{resp.Selected: true}
	for _, alt := range resp.Alternatives {
		set[alt] = true
	}
	return set
}

// PriceResult holds get_price's result: exactly one of Single (direct
// single-adapter path) or Aggregated (multi-provider fan-out) is set.
type PriceResult struct {
	Single     *types.PriceData
	Aggregated *aggregator.AggregatedOracleData
}

// GetPrice resolves an asset's price. When provider is non-empty it takes
// the direct single-adapter fast path (no aggregation overhead for a
// single source, per §4.I'); otherwise it fans out across every
// price-capable registered adapter and aggregates. When only one
// price-capable adapter is registered, that adapter is queried directly
// and Single is set.
func (o *Orchestrator) GetPrice(ctx context.Context, asset string, provider types.Provider) (PriceResult, error) {
	ctx, span := tracer.Start(ctx, "GetPrice", trace.WithAttributes(
		attribute.String("oracle.asset", asset),
		attribute.String("oracle.provider", string(provider)),
	))
	defer span.End()

	req := types.CanonicalOracleRequest{
		Query:      fmt.Sprintf("price of %s", asset),
		DataType:   types.CategoryPrice,
		Parameters: map[string]any{"asset": asset},
		TimeoutMs:  10_000,
		Format:     types.FormatJSON,
	}

	if provider != "" {
		adapter, ok := o.registry.Get(string(provider))
		if !ok {
			return PriceResult{}, types.NewError(types.ErrUnsupported,
				fmt.Sprintf("provider %s is not registered", provider))
		}
		resp, err := adapter.Query(ctx, req)
		if err != nil {
			return PriceResult{}, err
		}
		if resp.Error != nil {
			return PriceResult{}, resp.Error
		}
		return PriceResult{Single: toPriceData(resp, asset)}, nil
	}

	adapters := o.registry.AdaptersFor(types.CategoryPrice)
	if len(adapters) == 0 {
		return PriceResult{}, types.NewError(types.ErrUnsupported, "no price-capable adapter registered")
	}
	if len(adapters) == 1 {
		resp, err := adapters[0].Query(ctx, req)
		if err != nil {
			return PriceResult{}, err
		}
		if resp.Error != nil {
			return PriceResult{}, resp.Error
		}
		return PriceResult{Single: toPriceData(resp, asset)}, nil
	}

	aggregated, err := o.aggregate.Fetch(ctx, adapters, req)
	if err != nil {
		return PriceResult{}, err
	}
	return PriceResult{Aggregated: &aggregated}, nil
}

// toPriceData shapes a single adapter response into the contract-bound
// PriceData struct (§6), extracting a numeric value from whatever scalar
// or Pyth-style struct the adapter returned.
func toPriceData(resp types.CanonicalOracleResponse, asset string) *types.PriceData {
	price := extractNumeric(resp.Data)
	return &types.PriceData{
		Price:      strconv.FormatFloat(price, 'f', -1, 64),
		Timestamp:  resp.TimestampUnix / 1000,
		Decimals:   8,
		Confidence: int(resp.Confidence * 10000),
		FeedID:     feedIDFor(asset),
	}
}

// extractNumeric pulls a display price out of common adapter response
// shapes without importing any adapter package (resolution stays
// independent of concrete provider types). Typed adapter responses are
// read through their JSON field names; a Pyth-style "price" is scaled by
// its "expo".
func extractNumeric(data any) float64 {
	switch v := data.(type) {
	case float64:
		return v
	case map[string]any:
		for _, key := range []string{"answer", "result", "value", "price"} {
			if f, ok := v[key].(float64); ok {
				if expo, ok := v["expo"].(float64); ok && key == "price" {
					return f * math.Pow(10, expo)
				}
				return f
			}
		}
	default:
		raw, err := json.Marshal(data)
		var m map[string]any
		if err == nil && json.Unmarshal(raw, &m) == nil && m != nil {
			return extractNumeric(m)
		}
	}
	return 0
}

// feedIDFor derives a deterministic bytes32-shaped placeholder feed id from
// an asset symbol until real feed-id wiring is configured per provider.
func feedIDFor(asset string) string {
	padded := strings.ToLower(asset)
	for len(padded) < 64 {
		padded += "0"
	}
	return "0x" + padded[:64]
}

// Resolve builds an LLM prompt for a market resolution, validates the
// result against PredictionMarketResolution, and enforces
// winning_outcome in [0, len(options)) per §4.I. On an invalid index it
// defaults to outcome 0 with confidence halved and an explanatory
// reasoning suffix, rather than raising.
func (o *Orchestrator) Resolve(ctx context.Context, question string, options []string, oracleData aggregator.AggregatedOracleData) (types.PredictionMarketResolution, error) {
	ctx, span := tracer.Start(ctx, "Resolve", trace.WithAttributes(attribute.Int("oracle.option_count", len(options))))
	defer span.End()

	if o.enhancer == nil {
		return types.PredictionMarketResolution{}, types.NewError(types.ErrAIService, "no LLM enhancer configured for resolution")
	}

	system := "You are a prediction-market resolution assistant. " + marketResolutionSchemaPrompt(options)
	user := fmt.Sprintf("Question: %q\nOptions: %s\nOracle data: aggregated_value=%v confidence=%.2f discrepancy=%v",
		question, strings.Join(options, ", "), oracleData.AggregatedValue, oracleData.Confidence, oracleData.DiscrepancyDetected)

	raw, err := o.enhancer.CallRaw(ctx, system, user)
	if err != nil {
		return types.PredictionMarketResolution{}, err
	}

	parsed, ok := enhancement.ValidateMarketResolution(raw)
	if !ok {
		return types.PredictionMarketResolution{}, types.NewError(types.ErrAIService, "resolution response failed schema validation")
	}

	if parsed.WinningOutcome < 0 || parsed.WinningOutcome >= len(options) {
		parsed.WinningOutcome = 0
		parsed.Confidence /= 2
		parsed.Reasoning += fmt.Sprintf(" (winning_outcome index out of range for %d options; defaulted to 0)", len(options))
	}
	if parsed.Timestamp == 0 {
		parsed.Timestamp = time.Now().Unix()
	}
	return parsed, nil
}

func marketResolutionSchemaPrompt(options []string) string {
	return fmt.Sprintf(`Respond with JSON matching: {"winning_outcome": integer index into %d options, "confidence": number in [0,1], "data_sources": [string] (at least 1), "reasoning": string (min 100 chars), "timestamp": unix seconds}`, len(options))
}
