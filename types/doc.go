// Package types holds the data shapes shared by every component of the
// oracle routing core: the classifier/routing/aggregator value types, the
// canonical provider request/response contract, the on-chain-compatible
// contract structs LLM output must validate against, and the structured
// Error used throughout.
package types
