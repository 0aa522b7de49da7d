// Quota Gate is a distributed API rate limiter for a notification-sending
// HTTP surface.
//
// It identifies callers by opaque API key, resolves their subscription
// plan, and admits or rejects each request against the plan's ceilings and
// the system-wide limits, with counters held in a shared Redis store so
// every stateless instance enforces one coherent view of usage.
//
// Usage:
//
//	# Start the gateway with default configuration
//	quotagate run
//
//	# Start with custom configuration file
//	quotagate run --config /path/to/config.yaml
//
//	# Validate configuration without starting
//	quotagate run --dry-run
//
//	# Show version information
//	quotagate version
package main

func main() {
	Execute()
}
