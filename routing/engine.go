package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oraclemesh/oraclecore/classifier"
	"github.com/oraclemesh/oraclecore/types"
)

// Route selects the best oracle provider for req and builds its
// provider-specific configuration. It is a pure function: given the same
// Capabilities table and the same request, it always returns the same
// response.
func Route(req types.RoutingRequest) types.RoutingResponse {
	category, baseConfidence := classifier.Classify(req.Question, req.CategoryHint)
	reqs := classifier.ExtractRequirements(req.Question)

	suitable := findSuitableProviders(category, req)
	if len(suitable) == 0 {
		return types.RoutingResponse{
			CanResolve: false,
			Reasoning:  fmt.Sprintf("No oracle supports %s data with your requirements", category),
			DataType:   category,
			Confidence: baseConfidence,
		}
	}

	selected, reasoning := selectBestProvider(suitable, category, reqs)
	capabilities := Capabilities[selected]

	boost := confidenceBoost(selected, category, reqs)
	confidence := baseConfidence + boost
	if confidence > 1 {
		confidence = 1
	}

	var alternatives []types.Provider
	if len(suitable) > 1 {
		end := 3
		if end > len(suitable) {
			end = len(suitable)
		}
		alternatives = append(alternatives, suitable[1:end]...)
	}

	return types.RoutingResponse{
		CanResolve:         true,
		Selected:           selected,
		Reasoning:          reasoning,
		OracleConfig:       buildOracleConfig(selected, category, reqs),
		Alternatives:       alternatives,
		DataType:           category,
		RequiredFeeds:      reqs.Assets,
		EstimatedCostUSD:   capabilities.CostUSD,
		EstimatedLatencyMs: capabilities.LatencyMs,
		Confidence:         confidence,
		ResolutionMethod:   resolutionMethods[selected],
		UpdateFrequency:    capabilities.UpdateFrequency,
	}
}

// findSuitableProviders filters the capability table down to providers that
// satisfy every hard constraint in req, then sorts them by preference.
func findSuitableProviders(category types.DataCategory, req types.RoutingRequest) []types.Provider {
	preferred := toSet(req.PreferredProviders)

	var suitable []types.Provider
	for provider, caps := range Capabilities {
		if len(preferred) > 0 && !preferred[provider] {
			continue
		}
		if !caps.SupportsCategory(category) {
			continue
		}
		if !caps.IntersectsChains(req.RequiredChains) {
			continue
		}
		if req.MaxLatencyMs > 0 && caps.LatencyMs > req.MaxLatencyMs {
			continue
		}
		if req.MaxCostUSD > 0 && caps.CostUSD > req.MaxCostUSD {
			continue
		}
		suitable = append(suitable, provider)
	}

	sortByPreference(suitable, category)
	return suitable
}

func toSet(providers []types.Provider) map[types.Provider]bool {
	if len(providers) == 0 {
		return nil
	}
	m := make(map[types.Provider]bool, len(providers))
	for _, p := range providers {
		m[p] = true
	}
	return m
}

// sortByPreference orders providers by reliability plus specialization and
// latency bonuses, breaking ties alphabetically for determinism.
func sortByPreference(providers []types.Provider, category types.DataCategory) {
	score := func(p types.Provider) float64 {
		caps := Capabilities[p]
		s := caps.Reliability
		if caps.HasSpecialty(category) {
			s += 0.1
		}
		s += (1.0 / (float64(caps.LatencyMs)/1000.0 + 1.0)) * 0.05
		return s
	}

	sort.Slice(providers, func(i, j int) bool {
		si, sj := score(providers[i]), score(providers[j])
		if si != sj {
			return si > sj
		}
		return providers[i] < providers[j]
	})
}

func containsProvider(suitable []types.Provider, p types.Provider) bool {
	for _, s := range suitable {
		if s == p {
			return true
		}
	}
	return false
}

var fedKeywords = []string{"fed", "federal reserve", "powell", "fomc", "interest rate"}
var corporateEventKeywords = []string{"announce", "launch", "ipo", "earnings", "merger"}
var socialEventKeywords = []string{"tweet", "post", "follower", "ban", "suspend"}

// selectBestProvider applies the category-specialization rules (§4.F step
// 5) in order, picking the first matching rule whose candidate survived
// filtering; falls back to the top of the preference-sorted list.
func selectBestProvider(suitable []types.Provider, category types.DataCategory, reqs types.Requirements) (types.Provider, string) {
	question := strings.ToLower(reqs.Question)

	if category == types.CategoryPrice && len(reqs.Assets) > 0 && assetsIntersect(reqs.Assets, cryptoAssets) {
		if containsProvider(suitable, types.ProviderPyth) {
			return types.ProviderPyth, fmt.Sprintf(
				"Pyth Network selected for %s - provides sub-second price updates from major exchanges with 100ms latency",
				strings.Join(reqs.Assets, ", "))
		}
		if containsProvider(suitable, types.ProviderChainlink) {
			return types.ProviderChainlink, fmt.Sprintf(
				"Chainlink selected for %s - industry-leading price aggregation with 99%% uptime",
				strings.Join(reqs.Assets, ", "))
		}
	}

	if category == types.CategorySports {
		if containsProvider(suitable, types.ProviderChainlink) {
			return types.ProviderChainlink, "Chainlink selected for sports data - exclusive partnerships with TheRundown and SportsdataIO for official game results"
		}
		if containsProvider(suitable, types.ProviderAPI3) {
			return types.ProviderAPI3, "API3 selected for sports data - first-party oracle connections to major sports APIs"
		}
	}

	if category == types.CategoryElection {
		if containsProvider(suitable, types.ProviderUMA) {
			return types.ProviderUMA, "UMA Optimistic Oracle selected for election results - human verification ensures accuracy with dispute resolution mechanism"
		}
	}

	if category == types.CategoryEconomic {
		if containsAnyWord(question, fedKeywords) {
			if containsProvider(suitable, types.ProviderUMA) {
				return types.ProviderUMA, "UMA selected for Fed decisions - optimistic oracle with human verification of official FOMC statements"
			}
		} else if containsProvider(suitable, types.ProviderChainlink) {
			return types.ProviderChainlink, "Chainlink selected for economic data - automated feeds from official government sources"
		}
	}

	if category == types.CategoryWeather {
		if containsProvider(suitable, types.ProviderAPI3) {
			return types.ProviderAPI3, "API3 selected for weather data - direct first-party connections to NOAA and AccuWeather"
		}
		if containsProvider(suitable, types.ProviderChainlink) {
			return types.ProviderChainlink, "Chainlink selected for weather data - verified AccuWeather integration with high reliability"
		}
	}

	if category == types.CategoryCustom || category == types.CategoryEvents {
		if containsAnyWord(question, corporateEventKeywords) && containsProvider(suitable, types.ProviderUMA) {
			return types.ProviderUMA, "UMA selected for corporate events - optimistic oracle ensures accurate verification of official announcements"
		}
		if containsAnyWord(question, socialEventKeywords) && containsProvider(suitable, types.ProviderBand) {
			return types.ProviderBand, "Band Protocol selected for social media data - flexible API integration for real-time social metrics"
		}
	}

	if category == types.CategoryNFT {
		if containsProvider(suitable, types.ProviderAPI3) {
			return types.ProviderAPI3, "API3 selected for NFT floor prices - direct OpenSea and Blur marketplace connections"
		}
	}

	best := suitable[0]
	caps := Capabilities[best]
	return best, fmt.Sprintf(
		"%s selected as optimal choice - %.0f%% reliability, %dms latency, $%.2f estimated cost",
		best, caps.Reliability*100, caps.LatencyMs, caps.CostUSD)
}

func assetsIntersect(assets []string, family map[string]bool) bool {
	for _, a := range assets {
		if family[a] {
			return true
		}
	}
	return false
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// confidenceBoost implements the §4.F step-7 specialization boost.
func confidenceBoost(provider types.Provider, category types.DataCategory, reqs types.Requirements) float64 {
	caps := Capabilities[provider]
	boost := 0.0

	if caps.HasSpecialty(category) {
		boost += 0.15
	}

	if category == types.CategoryPrice && len(reqs.Assets) > 0 {
		switch provider {
		case types.ProviderPyth:
			if assetsIntersect(reqs.Assets, cryptoAssets) {
				boost += 0.10
			}
		case types.ProviderChainlink:
			if assetsIntersect(reqs.Assets, stockAssets) {
				boost += 0.10
			}
		}
	}

	if caps.Reliability >= 0.98 {
		boost += 0.05
	}

	return boost
}

// buildOracleConfig builds the provider-specific query configuration §6
// expects every adapter to be driven by.
func buildOracleConfig(provider types.Provider, category types.DataCategory, reqs types.Requirements) map[string]any {
	base := map[string]any{
		"provider":     string(provider),
		"category":     string(category),
		"requirements": reqs,
	}

	switch provider {
	case types.ProviderChainlink:
		feedType := "data_feed"
		if category == types.CategoryPrice {
			feedType = "price_feed"
		}
		pairs := make([]string, 0, len(reqs.Assets))
		for _, asset := range reqs.Assets {
			pairs = append(pairs, asset+"/USD")
		}
		base["feed_type"] = feedType
		base["pairs"] = pairs
		base["aggregation"] = "median"
		base["heartbeat"] = 3600

	case types.ProviderPyth:
		base["update_type"] = "pull_based"
		base["confidence_interval"] = true
		base["feed_ids"] = reqs.Assets

	case types.ProviderUMA:
		base["oracle_type"] = "optimistic"
		base["liveness_period"] = 7200
		base["bond_amount"] = "100"
		base["dispute_mechanism"] = true

	case types.ProviderBand:
		base["request_type"] = "custom"
		base["data_sources"] = reqs.Assets
		base["aggregation_method"] = "weighted_average"

	case types.ProviderAPI3:
		base["api_type"] = "first_party"
		base["signed_data"] = true
		base["data_feeds"] = reqs.Assets
	}

	return base
}
