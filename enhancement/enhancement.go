// Package enhancement calls an LLM provider to refine a low-confidence or
// complex routing decision, validating its output against the §6 contract
// schemas before merging it into the rule-based response, per
// SPEC_FULL.md §4.G'. This is a minimal, purpose-built JSON client, not a
// general-purpose LLM SDK (an explicit Non-goal).
package enhancement

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/transport"
	"github.com/oraclemesh/oraclecore/types"
)

// gateKeywords trigger enhancement regardless of confidence (§4.G).
var gateKeywords = []string{" and ", " or ", " but ", "unless", "multiple", "conditional"}

// ShouldEnhance reports whether basic should be sent through LLM
// enhancement: low confidence, compound/conditional phrasing, a
// CUSTOM/EVENTS category, or a high estimated cost.
func ShouldEnhance(question string, basic types.RoutingResponse) bool {
	if basic.Confidence < 0.7 {
		return true
	}
	lower := strings.ToLower(question)
	for _, kw := range gateKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if basic.DataType == types.CategoryCustom || basic.DataType == types.CategoryEvents {
		return true
	}
	if basic.EstimatedCostUSD > 50 {
		return true
	}
	return false
}

// LLMProviderConfig is one configured LLM backend in the fallback chain.
type LLMProviderConfig struct {
	Name     string
	Endpoint string
	APIKey   string
	Model    string
}

// Enhancer calls a prioritized chain of LLM providers, falling back to the
// next on failure, and validates/merges the result into a basic routing
// response.
type Enhancer struct {
	providers []LLMProviderConfig
	session   *transport.Session
	logger    *zap.Logger
}

// New builds an Enhancer over a priority-ordered provider list. Each
// provider shares the same transport.Session so retry/circuit-breaker/
// rate-limit policy is uniform, per §4.A.
func New(providers []LLMProviderConfig, session *transport.Session, logger *zap.Logger) *Enhancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{providers: providers, session: session, logger: logger}
}

// jsonSchemaPrompt is the instruction appended to every request describing
// the OracleRoutingResponse shape, per §4.G.
const jsonSchemaPrompt = `Respond with JSON matching this schema: {"selected_oracle": "CHAINLINK"|"PYTH"|"UMA"|"API3"|"CUSTOM", "reasoning": string (min 50 chars), "confidence": number in [0,1], "confidence_boost": number in [0,0.5], "fallback_options": [string]}`

type llmRequest struct {
	Model          string  `json:"model"`
	System         string  `json:"system"`
	User           string  `json:"user"`
	Schema         string  `json:"schema"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat string  `json:"response_format"`
}

type llmRawResponse struct {
	Content string `json:"content"`
}

// Enhance sends question plus basic's reasoning through the configured LLM
// fallback chain and merges a valid result into basic per §4.G's merge
// rules. Any failure along the way (all providers unavailable, malformed
// JSON, schema violation) returns basic unchanged: LLM unavailability is
// never fatal to routing (§7 AI_SERVICE policy).
func (e *Enhancer) Enhance(ctx context.Context, question string, basic types.RoutingResponse, candidates map[types.Provider]bool) types.RoutingResponse {
	if len(e.providers) == 0 {
		return basic
	}

	systemPrompt := "You are an oracle routing assistant for a prediction-market backend. " + jsonSchemaPrompt
	userPrompt := fmt.Sprintf("Question: %q\nBase routing reasoning: %s", question, basic.Reasoning)

	for _, p := range e.providers {
		raw, err := e.call(ctx, p, systemPrompt, userPrompt)
		if err != nil {
			e.logger.Warn("llm provider unavailable, trying next", zap.String("provider", p.Name), zap.Error(err))
			continue
		}

		parsed, ok := Validate(raw)
		if !ok {
			e.logger.Warn("llm response failed schema validation, falling back to rule-based", zap.String("provider", p.Name))
			return basic
		}

		return merge(basic, parsed, candidates)
	}

	e.logger.Warn("all llm providers unavailable, skipping enhancement")
	return basic
}

// CallRaw tries each configured provider in priority order with an
// arbitrary system/user prompt pair, returning the first provider's raw
// response text. Used by the resolution orchestrator for market-resolution
// prompts, which validate against a different schema than routing
// enhancement does.
func (e *Enhancer) CallRaw(ctx context.Context, system, user string) (string, error) {
	if len(e.providers) == 0 {
		return "", types.NewError(types.ErrAIService, "no LLM providers configured")
	}
	var lastErr error
	for _, p := range e.providers {
		raw, err := e.call(ctx, p, system, user)
		if err != nil {
			lastErr = err
			e.logger.Warn("llm provider unavailable, trying next", zap.String("provider", p.Name), zap.Error(err))
			continue
		}
		return raw, nil
	}
	return "", types.NewError(types.ErrAIService, "all llm providers unavailable").WithCause(lastErr)
}

// call issues one provider request. It returns the raw JSON text the
// provider claims matches the schema; syntactic/semantic validation
// happens separately in Validate.
func (e *Enhancer) call(ctx context.Context, p LLMProviderConfig, system, user string) (string, error) {
	req := llmRequest{
		Model:          p.Model,
		System:         system,
		User:           user,
		Schema:         jsonSchemaPrompt,
		Temperature:    0.2,
		ResponseFormat: "json_object",
	}
	var resp llmRawResponse
	headers := map[string]string{"Authorization": "Bearer " + p.APIKey}
	if err := e.session.DoJSON(ctx, "POST", p.Endpoint, req, headers, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// merge applies §4.G's merge rules: selected := llm.selected if in the
// candidate set else keep basic; confidence := min(1, basic+boost);
// reasoning concatenates both; alternatives/cost/latency unchanged.
func merge(basic types.RoutingResponse, llm types.OracleRoutingResponse, candidates map[types.Provider]bool) types.RoutingResponse {
	merged := basic

	llmProvider := types.NormalizeProvider(llm.SelectedOracle)
	if candidates == nil || candidates[llmProvider] {
		merged.Selected = llmProvider
	}

	boost := llm.ConfidenceBoost
	if boost < 0 {
		boost = 0
	}
	if boost > 0.5 {
		boost = 0.5
	}
	merged.Confidence = basic.Confidence + boost
	if merged.Confidence > 1 {
		merged.Confidence = 1
	}

	merged.Reasoning = llm.Reasoning + " (enhanced from: " + basic.Reasoning + ")"
	return merged
}
