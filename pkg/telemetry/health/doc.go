// Package health implements liveness and readiness checks for the gateway.
//
// The liveness check only confirms the process is alive. The readiness
// check runs all registered component checks (counter store, durable
// store) concurrently and reports "degraded" if any fail, which the
// admission filter's 503 fail-closed behavior mirrors on the hot path.
package health
