// Package routing selects the best oracle provider for a classified
// question under hard constraints (chains, cost, latency, preference) and
// builds the provider-specific query configuration.
package routing

import "github.com/oraclemesh/oraclecore/types"

func boolSet(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func categorySet(values ...types.DataCategory) map[types.DataCategory]bool {
	m := make(map[types.DataCategory]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Capabilities is the static, reloadable provider capability matrix routing
// decisions are made against. It is written only by ApplyCapabilityOverlay
// at startup and is read-only after that, per the data-race rules in the
// concurrency model.
var Capabilities = map[types.Provider]types.ProviderCapabilities{
	types.ProviderChainlink: {
		Provider: types.ProviderChainlink,
		Categories: categorySet(
			types.CategoryPrice, types.CategorySports, types.CategoryWeather,
			types.CategoryRandom, types.CategoryStocks, types.CategoryForex,
		),
		UpdateFrequency: types.FrequencyHighFreq,
		SupportedChains: boolSet("ethereum", "polygon", "arbitrum", "optimism", "avalanche", "bnb"),
		LatencyMs:       500,
		Reliability:     0.99,
		CostUSD:         0.50,
		Specialties: map[types.DataCategory][]string{
			types.CategorySports:  {"TheRundown", "SportsdataIO"},
			types.CategoryWeather: {"AccuWeather", "OpenWeather"},
			types.CategoryStocks:  {"Tiingo", "AlphaVantage"},
		},
	},
	types.ProviderPyth: {
		Provider: types.ProviderPyth,
		Categories: categorySet(
			types.CategoryPrice, types.CategoryStocks, types.CategoryForex, types.CategoryCommodities,
		),
		UpdateFrequency: types.FrequencyRealtime,
		SupportedChains: boolSet("solana", "ethereum", "arbitrum", "optimism", "base"),
		LatencyMs:       100,
		Reliability:     0.98,
		CostUSD:         0.10,
		Specialties: map[types.DataCategory][]string{
			types.CategoryPrice:  {"real_time_feeds"},
			types.CategoryStocks: {"NYSE", "NASDAQ"},
			types.CategoryForex:  {"major_pairs"},
		},
	},
	types.ProviderBand: {
		Provider: types.ProviderBand,
		Categories: categorySet(
			types.CategoryPrice, types.CategoryStocks, types.CategoryForex,
			types.CategoryCommodities, types.CategoryCustom,
		),
		UpdateFrequency: types.FrequencyMedFreq,
		SupportedChains: boolSet("cosmos", "ethereum", "binance", "polygon"),
		LatencyMs:       1000,
		Reliability:     0.95,
		CostUSD:         0.30,
		Specialties: map[types.DataCategory][]string{
			types.CategoryCustom: {"any_api_endpoint"},
		},
	},
	types.ProviderUMA: {
		Provider: types.ProviderUMA,
		Categories: categorySet(
			types.CategoryCustom, types.CategoryEvents, types.CategoryEconomic, types.CategoryElection,
		),
		UpdateFrequency: types.FrequencyOnDemand,
		SupportedChains: boolSet("ethereum", "polygon", "arbitrum"),
		LatencyMs:       7_200_000, // 2 hours, the optimistic-oracle liveness period
		Reliability:     0.97,
		CostUSD:         100.00, // includes dispute bond
		Specialties: map[types.DataCategory][]string{
			types.CategoryElection: {"human_verified"},
			types.CategoryEvents:   {"dispute_resolution"},
			types.CategoryEconomic: {"fed_decisions"},
		},
	},
	types.ProviderAPI3: {
		Provider: types.ProviderAPI3,
		Categories: categorySet(
			types.CategoryPrice, types.CategoryWeather, types.CategorySports,
			types.CategoryCustom, types.CategoryNFT,
		),
		UpdateFrequency: types.FrequencyMedFreq,
		SupportedChains: boolSet("ethereum", "polygon", "avalanche", "bnb", "arbitrum"),
		LatencyMs:       800,
		Reliability:     0.96,
		CostUSD:         0.25,
		Specialties: map[types.DataCategory][]string{
			types.CategoryWeather: {"direct_noaa"},
			types.CategoryNFT:     {"opensea_floor", "blur_floor"},
		},
	},
}

// resolutionMethods maps a selected provider to how its result is produced.
var resolutionMethods = map[types.Provider]types.ResolutionMethod{
	types.ProviderChainlink: types.ResolutionAggregated,
	types.ProviderPyth:      types.ResolutionDirectPull,
	types.ProviderBand:      types.ResolutionCrossChainAggregated,
	types.ProviderUMA:       types.ResolutionOptimisticHuman,
	types.ProviderAPI3:      types.ResolutionFirstPartySigned,
}

// ApplyCapabilityOverlay merges an operator-supplied overlay (typically
// loaded via config.LoadCapabilitiesOverlay) into Capabilities, replacing
// any entry the overlay names and leaving the rest at their built-in
// defaults. Intended to run once at startup, before any Route call.
func ApplyCapabilityOverlay(overlay map[types.Provider]types.ProviderCapabilities) {
	for provider, caps := range overlay {
		Capabilities[provider] = caps
	}
}

// cryptoAssets is the asset family Pyth specializes in for routing boosts.
var cryptoAssets = map[string]bool{"BTC": true, "ETH": true, "SOL": true, "AVAX": true}

// stockAssets is the asset family Chainlink specializes in for routing boosts.
var stockAssets = map[string]bool{"AAPL": true, "TSLA": true, "MSFT": true, "GOOGL": true}
