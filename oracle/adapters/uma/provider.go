// Package uma implements the UMA Optimistic Oracle adapter: a
// propose-then-dispute-window request/response, per SPEC_FULL.md §4.B'/C'.
package uma

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/config"
	"github.com/oraclemesh/oraclecore/oracle"
	"github.com/oraclemesh/oraclecore/transport"
	"github.com/oraclemesh/oraclecore/types"
)

var supportedCategories = map[types.DataCategory]bool{
	types.CategoryCustom:   true,
	types.CategoryEvents:   true,
	types.CategoryEconomic: true,
	types.CategoryElection: true,
}

// Identifier is UMA's proposal-type enum.
type Identifier string

const (
	IdentifierYesOrNo         Identifier = "YES_OR_NO_QUERY"
	IdentifierNumerical       Identifier = "NUMERICAL"
	IdentifierMultipleChoice  Identifier = "MULTIPLE_CHOICE"
)

// proposalRequest is the payload UMA's optimistic-oracle request endpoint
// accepts (§4.C).
type proposalRequest struct {
	Identifier            Identifier `json:"identifier"`
	QuestionText           string     `json:"question_text"`
	AncillaryData          string     `json:"ancillary_data"` // JSON-encoded
	BondAmount             string     `json:"bond_amount"`
	LivenessPeriodSeconds  int        `json:"liveness_period_seconds"`
}

// proposalResponse is what the request endpoint returns once a value has
// been proposed (but not necessarily finalized — see the
// decision_latency_ms and finalization_latency_ms metadata keys).
type proposalResponse struct {
	ProposalID string  `json:"proposal_id"`
	Value      float64 `json:"value"`
	Resolved   bool    `json:"resolved"`
	Disputed   bool    `json:"disputed"`
	ProposedAt int64   `json:"proposed_at"` // unix seconds
}

// DefaultLivenessSeconds is the dispute window used when the request does
// not specify one: 2 hours, matching the §4.C latency target.
const DefaultLivenessSeconds = 7200

// DefaultBondAmount is the USD bond UMA requires per request (§4.C cost).
const DefaultBondAmount = "100"

// Adapter is the UMA provider adapter.
type Adapter struct {
	*oracle.Base
	session *transport.Session
	baseURL string
	logger  *zap.Logger
}

// New builds a UMA adapter.
func New(cfg config.ProviderConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://oracle.uma.xyz"
	}

	a := &Adapter{baseURL: baseURL, logger: logger}
	a.Base = oracle.NewBase("uma", "v1", supportedCategories, a)
	a.session = transport.NewSession(transport.SessionConfig{
		Provider:     "uma",
		Timeout:      cfg.Timeout,
		RetryPolicy:  &transport.RetryPolicy{MaxRetries: cfg.Retries, InitialDelay: 2 * time.Second, MaxDelay: 60 * time.Second, Multiplier: 2, Jitter: true},
		BreakerCfg:   &transport.BreakerConfig{OnStateChange: a.OnBreakerStateChange},
		RateLimitRPS: 2,
		RateBurst:    2,
		Logger:       logger,
	})
	return a
}

// Execute submits a proposal request. UMA is not cached: every question
// gets its own proposal, and the liveness period already bounds freshness.
func (a *Adapter) Execute(ctx context.Context, req types.CanonicalOracleRequest) (any, error) {
	question := req.Query
	if !strings.HasSuffix(strings.TrimSpace(question), "?") {
		question = strings.TrimSpace(question) + "?"
	}

	liveness := DefaultLivenessSeconds
	if v, ok := req.Parameters["liveness_period_seconds"].(int); ok && v > 0 {
		liveness = v
	}

	payload := proposalRequest{
		Identifier:            identifierFor(req),
		QuestionText:          question,
		AncillaryData:         ancillaryData(req),
		BondAmount:            DefaultBondAmount,
		LivenessPeriodSeconds: liveness,
	}

	var resp proposalResponse
	if err := a.session.DoJSON(ctx, "POST", a.baseURL+"/v1/propose", payload, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CalculateConfidence treats an undisputed proposal as high confidence and
// a disputed one as zero until it resolves.
func (a *Adapter) CalculateConfidence(data any, _ types.CanonicalOracleRequest) float64 {
	prop, ok := data.(proposalResponse)
	if !ok {
		return 0
	}
	if prop.Disputed && !prop.Resolved {
		return 0
	}
	if prop.Resolved {
		return 0.98
	}
	return 0.85 // proposed, within liveness, undisputed so far
}

// CalculateCost returns UMA's $100 flat cost, which includes the dispute
// bond (§4.C).
func (a *Adapter) CalculateCost(_ types.CanonicalOracleRequest) float64 { return 100.00 }

// ResponseMetadata splits latency into decision (immediate, 0ms) and
// finalization (the full liveness period), per the §9 Open Question
// resolution recorded in DESIGN.md.
func (a *Adapter) ResponseMetadata(req types.CanonicalOracleRequest) map[string]any {
	liveness := DefaultLivenessSeconds
	if v, ok := req.Parameters["liveness_period_seconds"].(int); ok && v > 0 {
		liveness = v
	}
	return map[string]any{
		"oracle_type":             "optimistic",
		"decision_latency_ms":     0,
		"finalization_latency_ms": liveness * 1000,
		"dispute_mechanism":       true,
	}
}

// HealthCheckQuery probes UMA's status endpoint rather than submitting a
// real (bonded) proposal.
func (a *Adapter) HealthCheckQuery(ctx context.Context) error {
	var resp map[string]any
	return a.session.DoJSON(ctx, "GET", a.baseURL+"/v1/status", nil, nil, &resp)
}

func identifierFor(req types.CanonicalOracleRequest) Identifier {
	switch req.DataType {
	case types.CategoryElection:
		return IdentifierYesOrNo
	case types.CategoryEconomic:
		return IdentifierYesOrNo
	default:
		return IdentifierYesOrNo
	}
}

func ancillaryData(req types.CanonicalOracleRequest) string {
	b := strings.Builder{}
	b.WriteString(`{"category":"`)
	b.WriteString(string(req.DataType))
	b.WriteString(`"}`)
	return b.String()
}
