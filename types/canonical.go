package types

// Format is the wire encoding an adapter is asked to use for its upstream
// call (most adapters only ever use JSON; the field exists so the canonical
// contract stays provider-agnostic).
type Format string

const (
	FormatJSON   Format = "json"
	FormatXML    Format = "xml"
	FormatText   Format = "text"
	FormatBinary Format = "binary"
)

// CanonicalOracleRequest is the uniform request every provider adapter
// accepts.
type CanonicalOracleRequest struct {
	Query      string
	DataType   DataCategory
	Parameters map[string]any
	TimeoutMs  int
	Format     Format
}

// CanonicalOracleResponse is the uniform response every provider adapter
// returns. Provider-level failures are carried in Error, not as a Go error
// return — only validation failures (§4.B) surface as Go errors.
type CanonicalOracleResponse struct {
	Data          any
	Provider      string
	TimestampUnix int64 // milliseconds
	Confidence    float64
	LatencyMs     int64
	CostUSD       float64
	Metadata      map[string]any
	Error         *Error
}
