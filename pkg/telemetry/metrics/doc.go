// Package metrics provides Prometheus metrics for the rate limiting
// gateway.
//
// A single Collector owns the registry and the metric families for the
// admission pipeline (admissions, throttles, evaluator latency), the
// subscription cache, and the two backing stores. Components receive the
// sub-collector they record into; the server mounts Collector.Handler()
// at the configured metrics path.
package metrics
