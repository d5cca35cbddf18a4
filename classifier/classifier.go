// Package classifier turns a prediction-market question's prose into a
// structured DataCategory plus the entities (assets, thresholds, timeframes,
// comparison operators) the routing engine needs.
package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oraclemesh/oraclecore/types"
)

// categoryKeywords scores a lowercased question against each category's
// keyword set. Categories with no keyword set here (stocks, forex,
// commodities, nft, random, events, custom) are never selected by keyword
// score alone — they are reached via an explicit hint or fall through to the
// CUSTOM default, matching the upstream analyzer this is ported from.
var categoryKeywords = map[types.DataCategory][]string{
	types.CategoryPrice: {
		"price", "cost", "value", "worth", "usd", "dollar", "euro", "btc",
		"eth", "bitcoin", "ethereum", "crypto", "stock", "share", "market cap",
		"above", "below", "exceed", "reach", "trade", "close", "open", "hit",
	},
	types.CategorySports: {
		"game", "match", "score", "win", "lose", "beat", "champion", "playoff",
		"tournament", "team", "player", "goal", "point", "nfl", "nba", "mlb",
		"super bowl", "world series", "finals", "mvp", "draft", "trade deadline",
		"season", "touchdown", "field goal", "home run", "strikeout", "penalty",
	},
	types.CategoryWeather: {
		"weather", "temperature", "rain", "snow", "wind", "hurricane",
		"storm", "celsius", "fahrenheit", "forecast", "climate", "drought",
	},
	types.CategoryElection: {
		"election", "vote", "poll", "candidate", "president", "senate",
		"congress", "governor", "ballot", "primary", "electoral", "democrat",
		"republican", "independent", "caucus", "debate", "campaign",
	},
	types.CategoryEconomic: {
		"gdp", "inflation", "cpi", "unemployment", "interest rate", "fed",
		"economy", "recession", "growth", "jobs report", "consumer", "fomc",
	},
}

var binaryOutcomePatterns = compileAll(
	`will\s+(\w+)\s+win`,
	`will\s+(\w+)\s+be\s+elected`,
	`will\s+(\w+)\s+happen`,
	`will\s+there\s+be`,
	`will\s+(\w+)\s+exceed`,
	`will\s+(\w+)\s+reach`,
)

var priceThresholdPatterns = compileAll(
	`(above|below|over|under)\s+\$?([\d,]+)`,
	`exceed\s+\$?([\d,]+)`,
	`hit\s+\$?([\d,]+)`,
)

// sportsMatchupPatterns catch head-to-head contest phrasing ("X beat Y",
// "X vs Y") that a plain keyword scan misses since the keyword itself
// ("beat") can be sparse relative to how often matchup questions appear.
var sportsMatchupPatterns = compileAll(
	`\b(?:beat|defeat|versus|vs\.?)\b`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Classify scores question against every known category, applies pattern
// boosts, and returns the winning category with its confidence in [0,1].
// A non-empty hint overrides the scored category and floors confidence at
// 0.8, matching the routing engine's hint-override behavior.
func Classify(question string, hint types.DataCategory) (types.DataCategory, float64) {
	lower := strings.ToLower(question)
	scores := map[types.DataCategory]int{}

	for category, keywords := range categoryKeywords {
		score := 0
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				words := len(strings.Fields(keyword))
				weight := 1
				if words > 1 {
					weight = words * 2
				}
				score += weight
			}
		}
		if score > 0 {
			scores[category] = score
		}
	}

	for _, re := range priceThresholdPatterns {
		if re.MatchString(lower) {
			scores[types.CategoryPrice] += 5
		}
	}
	for _, re := range sportsMatchupPatterns {
		if re.MatchString(lower) {
			scores[types.CategorySports] += 5
		}
	}
	for _, re := range binaryOutcomePatterns {
		if re.MatchString(lower) && len(scores) > 0 {
			leader := leadingCategory(scores)
			scores[leader] += 3
		}
	}

	var category types.DataCategory
	var confidence float64
	if len(scores) == 0 {
		category, confidence = types.CategoryCustom, 0.3
	} else {
		category = leadingCategory(scores)
		confidence = minF(float64(scores[category])/10.0, 1.0)
	}

	if hint != "" {
		category = hint
		confidence = maxF(confidence, 0.8)
	}

	return category, confidence
}

func leadingCategory(scores map[types.DataCategory]int) types.DataCategory {
	var best types.DataCategory
	bestScore := -1
	for category, score := range scores {
		if score > bestScore || (score == bestScore && category < best) {
			best, bestScore = category, score
		}
	}
	return best
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// cryptoAssetRE and stockCompanies ground asset extraction.
var cryptoAssetRE = regexp.MustCompile(`\b(BTC|ETH|SOL|AVAX|MATIC|BNB|USDC|USDT|ADA|DOT|LINK|UNI)\b`)

var stockCompanies = map[string]string{
	"tesla": "TSLA", "apple": "AAPL", "microsoft": "MSFT", "google": "GOOGL",
	"amazon": "AMZN", "netflix": "NFLX", "meta": "META", "nvidia": "NVDA",
}

var tickerContextWords = map[string]bool{"stock": true, "share": true, "price": true}

func extractAssets(question string) []string {
	seen := map[string]bool{}
	var assets []string

	for _, m := range cryptoAssetRE.FindAllString(strings.ToUpper(question), -1) {
		if !seen[m] {
			seen[m] = true
			assets = append(assets, m)
		}
	}

	lower := strings.ToLower(question)
	for company, ticker := range stockCompanies {
		if strings.Contains(lower, company) && !seen[ticker] {
			seen[ticker] = true
			assets = append(assets, ticker)
		}
	}

	words := strings.Fields(question)
	for i, w := range words {
		if i+1 >= len(words) {
			continue
		}
		if !isTickerShaped(w) {
			continue
		}
		next := strings.ToLower(strings.Trim(words[i+1], ".,!?;:"))
		if tickerContextWords[next] && !seen[w] {
			seen[w] = true
			assets = append(assets, w)
		}
	}

	return assets
}

func isTickerShaped(w string) bool {
	if len(w) == 0 || len(w) > 5 {
		return false
	}
	for _, r := range w {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

var thresholdRE = regexp.MustCompile(`\$?([\d,]+\.?\d*)\s*([kKmMbB]|thousand|million|billion)?`)

func extractThreshold(question string) (string, bool) {
	m := thresholdRE.FindStringSubmatch(question)
	if m == nil || m[1] == "" {
		return "", false
	}
	value := m[1]
	var mult float64
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		mult = 1e3
	case "m", "million":
		mult = 1e6
	case "b", "billion":
		mult = 1e9
	default:
		return value, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return value, true
	}
	return strconv.FormatFloat(f*mult, 'f', -1, 64), true
}

type timeframeRule struct {
	re    *regexp.Regexp
	fixed time.Duration
	unit  time.Duration // 0 for fixed-duration rules; otherwise multiplied by the captured count
}

var timeframeRules = []timeframeRule{
	{re: regexp.MustCompile(`(?i)by\s+end\s+of\s+(?:the\s+)?day`), fixed: 24 * time.Hour},
	{re: regexp.MustCompile(`(?i)by\s+end\s+of\s+(?:the\s+)?week`), fixed: 7 * 24 * time.Hour},
	{re: regexp.MustCompile(`(?i)by\s+end\s+of\s+(?:the\s+)?month`), fixed: 30 * 24 * time.Hour},
	{re: regexp.MustCompile(`(?i)by\s+end\s+of\s+(?:the\s+)?year`), fixed: 365 * 24 * time.Hour},
	{re: regexp.MustCompile(`(?i)within\s+(\d+)\s+hours?`), unit: time.Hour},
	{re: regexp.MustCompile(`(?i)within\s+(\d+)\s+days?`), unit: 24 * time.Hour},
	{re: regexp.MustCompile(`(?i)within\s+(\d+)\s+weeks?`), unit: 7 * 24 * time.Hour},
	{re: regexp.MustCompile(`(?i)within\s+(\d+)\s+months?`), unit: 30 * 24 * time.Hour},
}

var yearRE = regexp.MustCompile(`(?i)(?:by\s+|before\s+)(\d{4})`)

// currentYear is injected so this package stays deterministic (no wall-clock
// reads, since the tests and callers must be reproducible).
var currentYear = func() int { return 2025 }

func extractTimeframe(question string) (time.Duration, bool) {
	for _, rule := range timeframeRules {
		m := rule.re.FindStringSubmatch(question)
		if m == nil {
			continue
		}
		if rule.unit == 0 {
			return rule.fixed, true
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return time.Duration(n) * rule.unit, true
	}

	if m := yearRE.FindStringSubmatch(question); m != nil {
		year, err := strconv.Atoi(m[1])
		if err == nil {
			days := (year - currentYear()) * 365
			if days < 0 {
				days = 0
			}
			return time.Duration(days) * 24 * time.Hour, true
		}
	}

	return 0, false
}

func extractComparison(question string) types.ComparisonOp {
	lower := strings.ToLower(question)
	switch {
	case containsAny(lower, "above", "exceed", "greater", "higher", "over", "hit"):
		return types.ComparisonGT
	case containsAny(lower, "below", "under", "less", "lower"):
		return types.ComparisonLT
	case containsAny(lower, "between", "range"):
		return types.ComparisonRange
	case containsAny(lower, "equal", "exactly"):
		return types.ComparisonEQ
	default:
		return ""
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func determineMarketType(question string) types.MarketType {
	lower := strings.ToLower(strings.TrimSpace(question))
	switch {
	case strings.HasPrefix(lower, "will ") || strings.HasPrefix(lower, "can ") ||
		strings.HasPrefix(lower, "does ") || strings.HasPrefix(lower, "is "):
		return types.MarketBinary
	case containsAny(lower, "who will", "which ", "what will"):
		return types.MarketCategorical
	case containsAny(lower, "how many", "how much", "what price"):
		return types.MarketScalar
	default:
		return types.MarketBinary
	}
}

// ExtractRequirements pulls assets, threshold, timeframe, comparison and
// market type out of a question's prose.
func ExtractRequirements(question string) types.Requirements {
	req := types.Requirements{
		Question:   question,
		Assets:     extractAssets(question),
		Comparison: extractComparison(question),
		MarketType: determineMarketType(question),
	}
	if threshold, ok := extractThreshold(question); ok {
		req.Threshold = threshold
	}
	if d, ok := extractTimeframe(question); ok {
		req.Timeframe, req.HasTimeframe = d, true
	}
	return req
}

// ComplexityScore estimates how hard a question is to resolve automatically,
// on a [0,1] scale. The enhancement gate (ShouldEnhance) does not use it.
func ComplexityScore(question string) float64 {
	complexity := 0.0

	wordCount := len(strings.Fields(question))
	complexity += minF(float64(wordCount)/50.0, 0.3)

	lower := strings.ToLower(question)
	if strings.Contains(lower, " and ") || strings.Contains(lower, " or ") {
		complexity += 0.2
	}

	if _, ok := extractTimeframe(question); ok {
		complexity += 0.1
	}
	if _, ok := extractThreshold(question); ok {
		complexity += 0.1
	}
	if len(extractAssets(question)) > 1 {
		complexity += 0.2
	}

	return minF(complexity, 1.0)
}
