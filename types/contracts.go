package types

import "regexp"

// addressRE and bytes32RE pin the on-chain-compatible string encodings
// required by §6/§8: a 20-byte address and a 32-byte word, both
// hex-encoded with a 0x prefix.
var (
	addressRE = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	bytes32RE = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// ZeroAddress is the sentinel used where no on-chain address applies yet.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// IsValidAddress reports whether s is the zero-address sentinel or a
// well-formed 20-byte hex address.
func IsValidAddress(s string) bool {
	return s == ZeroAddress || addressRE.MatchString(s)
}

// IsValidBytes32 reports whether s is a well-formed 32-byte hex word.
func IsValidBytes32(s string) bool {
	return bytes32RE.MatchString(s)
}

// OracleData is the generic on-chain-bound oracle value shape.
type OracleData struct {
	Value      string `json:"value"`      // uint256, decimal string
	Timestamp  int64  `json:"timestamp"`  // uint256 (unix seconds)
	Confidence int    `json:"confidence"` // uint256 in [0,10000]
	DataID     string `json:"data_id"`    // bytes32
	Source     string `json:"source"`
}

// PriceData is the on-chain-bound price feed shape.
type PriceData struct {
	Price      string `json:"price"`     // uint256, decimal string
	Timestamp  int64  `json:"timestamp"` // uint256 (unix seconds)
	Decimals   int    `json:"decimals"`  // uint8 in [0,18]
	Confidence int    `json:"confidence"`
	FeedID     string `json:"feed_id"` // bytes32
}

// ResolutionData is the on-chain-bound market resolution shape.
type ResolutionData struct {
	Result    string `json:"result"` // uint256, decimal string
	Resolved  bool   `json:"resolved"`
	Timestamp int64  `json:"timestamp"`
	Proof     []byte `json:"proof"`
	Metadata  string `json:"metadata"`
}

// RouteResult is the on-chain-bound routing decision shape.
type RouteResult struct {
	Success           bool   `json:"success"`
	SelectedProvider  string `json:"selected_provider"` // uppercase enum
	OracleAddress     string `json:"oracle_address"`
	EstimatedCost     string `json:"estimated_cost"` // uint256, decimal string
	Reason            string `json:"reason"`
}

// OracleRoutingResponse is the LLM-facing routing enhancement schema.
type OracleRoutingResponse struct {
	SelectedOracle   string   `json:"selected_oracle"` // uppercase enum
	Reasoning        string   `json:"reasoning"`        // min 50 chars
	Confidence       float64  `json:"confidence"`       // [0,1]
	EstimatedCost    *float64 `json:"estimated_cost,omitempty"`
	EstimatedTime    *int     `json:"estimated_time,omitempty"`
	FallbackOptions  []string `json:"fallback_options,omitempty"`
	ConfidenceBoost  float64  `json:"confidence_boost,omitempty"` // [0,0.5], used by the merge step
}

// PredictionMarketResolution is the LLM-facing market resolution schema.
type PredictionMarketResolution struct {
	WinningOutcome  int      `json:"winning_outcome"` // uint8 in [0,255]
	ResolutionValue *int64   `json:"resolution_value,omitempty"`
	Confidence      float64  `json:"confidence"` // [0,1]
	DataSources     []string `json:"data_sources"` // len >= 1
	Reasoning       string   `json:"reasoning"`    // min 100 chars
	Timestamp       int64    `json:"timestamp"`
	ProofHash       *string  `json:"proof_hash,omitempty"`
}

// OracleDataValidation is the output shape of a data-quality check.
type OracleDataValidation struct {
	IsValid            bool     `json:"is_valid"`
	ConfidenceScore    float64  `json:"confidence_score"` // [0,1]
	AnomalyDetected    bool     `json:"anomaly_detected"`
	DataFreshnessSecs  int64    `json:"data_freshness_seconds"`
	SourceReliability  float64  `json:"source_reliability"` // [0,1]
	Issues             []string `json:"issues,omitempty"`
	Recommendations    []string `json:"recommendations,omitempty"`
}

// validOracleEnumValues is the closed set accepted by OracleRoutingResponse's
// selected_oracle / fallback_options fields.
var validOracleEnumValues = map[string]bool{
	"CHAINLINK": true,
	"PYTH":      true,
	"UMA":       true,
	"API3":      true,
	"CUSTOM":    true,
}

// IsValidOracleEnum reports whether s (case-exact) is one of the wire
// provider selector enum values.
func IsValidOracleEnum(s string) bool {
	return validOracleEnumValues[s]
}
