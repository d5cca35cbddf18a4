package transport

import (
	"time"

	"github.com/oraclemesh/oraclecore/types"
)

// categoryTTL gives each data category a cache lifetime matched to how
// quickly its real-world value moves: prices are seconds-fresh, weather and
// economic data changes far more slowly.
var categoryTTL = map[types.DataCategory]time.Duration{
	types.CategoryPrice:       60 * time.Second,
	types.CategorySports:      5 * time.Minute,
	types.CategoryWeather:     10 * time.Minute,
	types.CategoryEconomic:    time.Hour,
	types.CategoryElection:    5 * time.Minute,
	types.CategoryStocks:      60 * time.Second,
	types.CategoryForex:       60 * time.Second,
	types.CategoryCommodities: 5 * time.Minute,
	types.CategoryNFT:         5 * time.Minute,
	types.CategoryEvents:      5 * time.Minute,
	types.CategoryRandom:      0, // never cached: every draw must be fresh
	types.CategoryCustom:      5 * time.Minute,
}

// defaultTTL applies when a category has no explicit entry.
const defaultTTL = 5 * time.Minute

// TTLForCategory returns the cache lifetime for category. A zero duration
// means "do not cache" — callers must skip the cache entirely rather than
// treat it as "use the default".
func TTLForCategory(category types.DataCategory) time.Duration {
	if ttl, ok := categoryTTL[category]; ok {
		return ttl
	}
	return defaultTTL
}
