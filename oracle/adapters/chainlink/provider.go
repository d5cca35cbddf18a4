// Package chainlink implements the Chainlink oracle adapter: on-chain
// aggregator-style price/data feeds looked up through a feed-registry HTTP
// call, keyed on "<ASSET>/USD" pairs, per SPEC_FULL.md §4.B'/C'.
package chainlink

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/config"
	"github.com/oraclemesh/oraclecore/oracle"
	"github.com/oraclemesh/oraclecore/transport"
	"github.com/oraclemesh/oraclecore/types"
)

// supportedCategories mirrors the §4.C capability table: price, sports (via
// third-party feeds), weather, random (VRF), stocks, forex.
var supportedCategories = map[types.DataCategory]bool{
	types.CategoryPrice:   true,
	types.CategorySports:  true,
	types.CategoryWeather: true,
	types.CategoryRandom:  true,
	types.CategoryStocks:  true,
	types.CategoryForex:   true,
}

// feedResponse is the feed-registry wire shape this adapter consumes.
type feedResponse struct {
	RoundID   string  `json:"round_id"`
	Answer    float64 `json:"answer"`
	UpdatedAt int64   `json:"updated_at"` // unix seconds
	Decimals  int     `json:"decimals"`
}

// Adapter is the Chainlink provider adapter.
type Adapter struct {
	*oracle.Base
	session *transport.Session
	cache   transport.Cache
	baseURL string
	logger  *zap.Logger
}

// New builds a Chainlink adapter. baseURL defaults to the public feed
// registry mirror when cfg.Endpoint is unset.
func New(cfg config.ProviderConfig, cache transport.Cache, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://feed-registry.chain.link"
	}

	a := &Adapter{cache: cache, baseURL: baseURL, logger: logger}
	a.Base = oracle.NewBase("chainlink", "v1", supportedCategories, a)
	a.session = transport.NewSession(transport.SessionConfig{
		Provider:     "chainlink",
		Timeout:      cfg.Timeout,
		RetryPolicy:  &transport.RetryPolicy{MaxRetries: cfg.Retries, InitialDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2, Jitter: true},
		BreakerCfg:   &transport.BreakerConfig{OnStateChange: a.OnBreakerStateChange},
		RateLimitRPS: 10,
		RateBurst:    5,
		Logger:       logger,
	})
	return a
}

// Execute resolves the feed named by req.Parameters["asset"] (or the first
// entry in req.Parameters["assets"]) against the Chainlink feed registry,
// checking the TTL cache first.
func (a *Adapter) Execute(ctx context.Context, req types.CanonicalOracleRequest) (any, error) {
	asset, err := assetFromRequest(req)
	if err != nil {
		return nil, err
	}

	key := transport.DataKey(req.DataType, map[string]any{"provider": "chainlink", "asset": asset})
	ttl := transport.TTLForCategory(req.DataType)

	if a.cache != nil && ttl > 0 {
		var cached feedResponse
		if hit, _ := transport.GetJSON(ctx, a.cache, key, &cached); hit {
			a.logger.Debug("chainlink cache hit", zap.String("asset", asset))
			return cached, nil
		}
	}

	var resp feedResponse
	url := fmt.Sprintf("%s/feeds/%s-usd", a.baseURL, asset)
	if err := a.session.DoJSON(ctx, "GET", url, nil, nil, &resp); err != nil {
		return nil, err
	}

	if a.cache != nil && ttl > 0 {
		if err := transport.SetJSON(ctx, a.cache, key, resp, ttl); err != nil {
			a.logger.Warn("chainlink cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// CalculateConfidence applies the Chainlink freshness rule: confidence
// starts at 0.95 and decays toward 0.5 as the feed staleness approaches an
// hour; zero data means zero confidence.
func (a *Adapter) CalculateConfidence(data any, _ types.CanonicalOracleRequest) float64 {
	feed, ok := data.(feedResponse)
	if !ok {
		return 0
	}
	age := time.Since(time.Unix(feed.UpdatedAt, 0))
	freshness := 1.0 - age.Seconds()/3600.0
	if freshness < 0 {
		freshness = 0
	}
	confidence := 0.5 + 0.45*freshness
	if confidence > 0.99 {
		confidence = 0.99
	}
	return confidence
}

// CalculateCost returns Chainlink's flat $0.50 per-query cost (§4.C).
func (a *Adapter) CalculateCost(_ types.CanonicalOracleRequest) float64 { return 0.50 }

// ResponseMetadata reports the aggregation method, the feed heartbeat and
// the requested asset.
func (a *Adapter) ResponseMetadata(req types.CanonicalOracleRequest) map[string]any {
	asset, _ := assetFromRequest(req)
	return map[string]any{"aggregation": "median", "heartbeat_seconds": 3600, "asset": asset}
}

// HealthCheckQuery probes the well-known ETH/USD feed.
func (a *Adapter) HealthCheckQuery(ctx context.Context) error {
	var resp feedResponse
	return a.session.DoJSON(ctx, "GET", a.baseURL+"/feeds/eth-usd", nil, nil, &resp)
}

func assetFromRequest(req types.CanonicalOracleRequest) (string, error) {
	if asset, ok := req.Parameters["asset"].(string); ok && asset != "" {
		return asset, nil
	}
	if assets, ok := req.Parameters["assets"].([]string); ok && len(assets) > 0 {
		return assets[0], nil
	}
	return "", types.NewError(types.ErrValidation, "chainlink request missing asset parameter").WithProvider("chainlink")
}
