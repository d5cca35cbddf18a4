package enhancement

import (
	"encoding/json"
	"strings"

	"github.com/oraclemesh/oraclecore/types"
)

// Validate implements the §9 two-phase validator: (1) syntactic JSON parse,
// (2) field-by-field schema validation against OracleRoutingResponse with
// enum case-normalization (accept "chainlink"|"CHAINLINK" on input). A
// validation failure returns (zero, false) rather than an error — schema
// violations are a recoverable AI_SERVICE condition, not a crash (§7).
func Validate(raw string) (types.OracleRoutingResponse, bool) {
	var loose map[string]any
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return types.OracleRoutingResponse{}, false
	}

	var parsed types.OracleRoutingResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return types.OracleRoutingResponse{}, false
	}

	parsed.SelectedOracle = strings.ToUpper(strings.TrimSpace(parsed.SelectedOracle))
	for i, alt := range parsed.FallbackOptions {
		parsed.FallbackOptions[i] = strings.ToUpper(strings.TrimSpace(alt))
	}

	if !types.IsValidOracleEnum(parsed.SelectedOracle) {
		return types.OracleRoutingResponse{}, false
	}
	if len(parsed.Reasoning) < 50 {
		return types.OracleRoutingResponse{}, false
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return types.OracleRoutingResponse{}, false
	}
	if parsed.ConfidenceBoost < 0 || parsed.ConfidenceBoost > 0.5 {
		// Clamp rather than reject: the boost is a soft signal the merge
		// step already clamps, so an out-of-range value is not a schema
		// violation worth discarding the whole response over.
		if parsed.ConfidenceBoost < 0 {
			parsed.ConfidenceBoost = 0
		} else {
			parsed.ConfidenceBoost = 0.5
		}
	}
	for _, alt := range parsed.FallbackOptions {
		if !types.IsValidOracleEnum(alt) {
			return types.OracleRoutingResponse{}, false
		}
	}

	return parsed, true
}

// ValidateMarketResolution applies the same two-phase discipline to a
// PredictionMarketResolution payload: syntactic parse, then the §6/§8
// field constraints (reasoning >= 100 chars, at least one data source,
// confidence in [0,1]). winningOutcome bounds (must be < numOutcomes) are
// checked by the caller, which knows the option count.
func ValidateMarketResolution(raw string) (types.PredictionMarketResolution, bool) {
	var parsed types.PredictionMarketResolution
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return types.PredictionMarketResolution{}, false
	}
	if len(parsed.Reasoning) < 100 {
		return types.PredictionMarketResolution{}, false
	}
	if len(parsed.DataSources) < 1 {
		return types.PredictionMarketResolution{}, false
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return types.PredictionMarketResolution{}, false
	}
	if parsed.WinningOutcome < 0 || parsed.WinningOutcome > 255 {
		return types.PredictionMarketResolution{}, false
	}
	return parsed, true
}
