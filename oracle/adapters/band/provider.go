// Package band implements the Band Protocol oracle adapter: a BandChain
// REST oracle-script call, per SPEC_FULL.md §4.B'/C'.
package band

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/config"
	"github.com/oraclemesh/oraclecore/oracle"
	"github.com/oraclemesh/oraclecore/transport"
	"github.com/oraclemesh/oraclecore/types"
)

var supportedCategories = map[types.DataCategory]bool{
	types.CategoryPrice:       true,
	types.CategoryStocks:      true,
	types.CategoryForex:       true,
	types.CategoryCommodities: true,
	types.CategoryCustom:      true,
}

// oracleScriptResponse is BandChain's oracle-script result wire shape.
type oracleScriptResponse struct {
	Result      float64  `json:"result"`
	Sources     []string `json:"sources"`
	RequestID   string   `json:"request_id"`
	ResolveTime int64    `json:"resolve_time"` // unix seconds
}

// Adapter is the Band Protocol provider adapter.
type Adapter struct {
	*oracle.Base
	session *transport.Session
	cache   transport.Cache
	baseURL string
	logger  *zap.Logger
}

// New builds a Band adapter.
func New(cfg config.ProviderConfig, cache transport.Cache, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://laozi1.bandchain.org/api"
	}

	a := &Adapter{cache: cache, baseURL: baseURL, logger: logger}
	a.Base = oracle.NewBase("band", "v1", supportedCategories, a)
	a.session = transport.NewSession(transport.SessionConfig{
		Provider:     "band",
		Timeout:      cfg.Timeout,
		RetryPolicy:  &transport.RetryPolicy{MaxRetries: cfg.Retries, InitialDelay: time.Second, MaxDelay: 15 * time.Second, Multiplier: 2, Jitter: true},
		BreakerCfg:   &transport.BreakerConfig{OnStateChange: a.OnBreakerStateChange},
		RateLimitRPS: 5,
		RateBurst:    5,
		Logger:       logger,
	})
	return a
}

func (a *Adapter) Execute(ctx context.Context, req types.CanonicalOracleRequest) (any, error) {
	symbol := symbolFromRequest(req)

	key := transport.DataKey(req.DataType, map[string]any{"provider": "band", "symbol": symbol})
	ttl := transport.TTLForCategory(req.DataType)

	if a.cache != nil && ttl > 0 {
		var cached oracleScriptResponse
		if hit, _ := transport.GetJSON(ctx, a.cache, key, &cached); hit {
			return cached, nil
		}
	}

	var resp oracleScriptResponse
	url := a.baseURL + "/oracle/request_prices/" + symbol
	if err := a.session.DoJSON(ctx, "GET", url, nil, nil, &resp); err != nil {
		return nil, err
	}

	if a.cache != nil && ttl > 0 {
		if err := transport.SetJSON(ctx, a.cache, key, resp, ttl); err != nil {
			a.logger.Warn("band cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// CalculateConfidence rewards requests that aggregated from more than one
// source; a single-source result is discounted.
func (a *Adapter) CalculateConfidence(data any, _ types.CanonicalOracleRequest) float64 {
	resp, ok := data.(oracleScriptResponse)
	if !ok {
		return 0
	}
	switch {
	case len(resp.Sources) >= 3:
		return 0.95
	case len(resp.Sources) == 2:
		return 0.85
	case len(resp.Sources) == 1:
		return 0.70
	default:
		return 0.5
	}
}

// CalculateCost returns Band's flat $0.30 per-query cost (§4.C).
func (a *Adapter) CalculateCost(_ types.CanonicalOracleRequest) float64 { return 0.30 }

func (a *Adapter) ResponseMetadata(req types.CanonicalOracleRequest) map[string]any {
	return map[string]any{
		"request_type":       "custom",
		"aggregation_method": "weighted_average",
		"symbol":             symbolFromRequest(req),
	}
}

func (a *Adapter) HealthCheckQuery(ctx context.Context) error {
	var resp oracleScriptResponse
	return a.session.DoJSON(ctx, "GET", a.baseURL+"/oracle/request_prices/BTC", nil, nil, &resp)
}

func symbolFromRequest(req types.CanonicalOracleRequest) string {
	if symbol, ok := req.Parameters["symbol"].(string); ok && symbol != "" {
		return symbol
	}
	if asset, ok := req.Parameters["asset"].(string); ok && asset != "" {
		return asset
	}
	return "BTC"
}
