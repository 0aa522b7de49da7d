// Package middleware provides the HTTP middleware chain for the
// notification gateway: request IDs, structured request logging, panic
// recovery, per-request timeouts, CORS, and the admission filter that
// enforces rate limits in front of the notify endpoints.
//
// Middlewares compose in the standard func(http.Handler) http.Handler
// style; the server assembles them outermost-first as
// Recovery -> RequestID -> Logging -> CORS -> Timeout -> admission -> mux.
// The admission filter wraps the whole mux and acts only on /api/notify/
// paths.
package middleware
