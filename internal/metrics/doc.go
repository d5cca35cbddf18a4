/*
Package metrics provides Prometheus-based instrumentation for the oracle
routing core, covering provider adapters, caching, circuit breakers,
routing decisions and aggregation outcomes.

Collector registers and records Prometheus metrics using promauto's
auto-registration, so callers never manage a Registry by hand. All
metrics are namespaced and labeled so Grafana-style dashboards can slice
by provider, category or cache backend.
*/
package metrics
