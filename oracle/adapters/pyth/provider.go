// Package pyth implements the Pyth Network oracle adapter: a Hermes-style
// REST price endpoint returning {price, conf, expo, publish_time}, per
// SPEC_FULL.md §4.B'/C'.
package pyth

import (
	"context"
	"fmt"
	"math"
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
}

// priceResponse is Pyth's Hermes wire shape. The real price is
// Price * 10^Expo.
type priceResponse struct {
	Price       int64 `json:"price"`
	Conf        int64 `json:"conf"`
	Expo        int   `json:"expo"`
	PublishTime int64 `json:"publish_time"` // unix seconds
}

// RealPrice returns Price scaled by 10^Expo.
func (p priceResponse) RealPrice() float64 {
	return float64(p.Price) * math.Pow(10, float64(p.Expo))
}

// RealConf returns Conf scaled by 10^Expo, in the same units as RealPrice.
func (p priceResponse) RealConf() float64 {
	return float64(p.Conf) * math.Pow(10, float64(p.Expo))
}

// Adapter is the Pyth provider adapter.
type Adapter struct {
	*oracle.Base
	session *transport.Session
	cache   transport.Cache
	baseURL string
	logger  *zap.Logger
}

// New builds a Pyth adapter, defaulting to the public Hermes endpoint.
func New(cfg config.ProviderConfig, cache transport.Cache, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://hermes.pyth.network"
	}

	a := &Adapter{cache: cache, baseURL: baseURL, logger: logger}
	a.Base = oracle.NewBase("pyth", "v1", supportedCategories, a)
	a.session = transport.NewSession(transport.SessionConfig{
		Provider:     "pyth",
		Timeout:      cfg.Timeout,
		RetryPolicy:  &transport.RetryPolicy{MaxRetries: cfg.Retries, InitialDelay: 250 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2, Jitter: true},
		BreakerCfg:   &transport.BreakerConfig{OnStateChange: a.OnBreakerStateChange},
		RateLimitRPS: 20,
		RateBurst:    10,
		Logger:       logger,
	})
	return a
}

func (a *Adapter) Execute(ctx context.Context, req types.CanonicalOracleRequest) (any, error) {
	asset, err := assetFromRequest(req)
	if err != nil {
		return nil, err
	}

	key := transport.DataKey(req.DataType, map[string]any{"provider": "pyth", "asset": asset})
	ttl := transport.TTLForCategory(req.DataType)

	if a.cache != nil && ttl > 0 {
		var cached priceResponse
		if hit, _ := transport.GetJSON(ctx, a.cache, key, &cached); hit {
			return cached, nil
		}
	}

	var resp priceResponse
	url := fmt.Sprintf("%s/v2/price/%s", a.baseURL, asset)
	if err := a.session.DoJSON(ctx, "GET", url, nil, nil, &resp); err != nil {
		return nil, err
	}

	if a.cache != nil && ttl > 0 {
		if err := transport.SetJSON(ctx, a.cache, key, resp, ttl); err != nil {
			a.logger.Warn("pyth cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// CalculateConfidence implements the §4.C Pyth rule: 1 - conf/price when
// price>0, else 0. This is the authoritative formula per §9's Open
// Question resolution (the source mixes scaled/unscaled values in places).
func (a *Adapter) CalculateConfidence(data any, _ types.CanonicalOracleRequest) float64 {
	price, ok := data.(priceResponse)
	if !ok {
		return 0
	}
	real := price.RealPrice()
	if real <= 0 {
		return 0
	}
	confidence := 1 - price.RealConf()/real
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// CalculateCost returns Pyth's flat $0.10 per-query cost (§4.C).
func (a *Adapter) CalculateCost(_ types.CanonicalOracleRequest) float64 { return 0.10 }

func (a *Adapter) ResponseMetadata(req types.CanonicalOracleRequest) map[string]any {
	asset, _ := assetFromRequest(req)
	return map[string]any{"update_type": "pull_based", "confidence_interval": true, "asset": asset}
}

func (a *Adapter) HealthCheckQuery(ctx context.Context) error {
	var resp priceResponse
	return a.session.DoJSON(ctx, "GET", a.baseURL+"/v2/price/BTC", nil, nil, &resp)
}

func assetFromRequest(req types.CanonicalOracleRequest) (string, error) {
	if asset, ok := req.Parameters["asset"].(string); ok && asset != "" {
		return asset, nil
	}
	if assets, ok := req.Parameters["assets"].([]string); ok && len(assets) > 0 {
		return assets[0], nil
	}
	return "", types.NewError(types.ErrValidation, "pyth request missing asset parameter").WithProvider("pyth")
}
