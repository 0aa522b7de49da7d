// Package telemetry provides observability for the rate limiting gateway.
//
// # Components
//
//   - logging: structured logging with API-key and PII redaction
//   - metrics: Prometheus metrics for admissions, throttling, and the
//     evaluator/subscription/durable-store round trips
//   - health: liveness and readiness endpoints covering the counter
//     store and durable store
//
// # API-Key Protection
//
// By default, API keys and other PII are automatically redacted from logs:
//
//   - API keys: rk_a1b2c3... -> rk_***
//   - Emails: user@example.com -> u***@example.com
//   - IP addresses: 192.168.1.1 -> 192.*.*.*
//
// Custom redaction patterns can be configured.
package telemetry
