package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mercator-hq/quota-gate/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a
// 500 Internal Server Error in the standard error envelope. It logs the
// panic with a stack trace for debugging but does not expose internal
// details to clients.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(r.Context())
				stack := debug.Stack()

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				errResp := types.NewInternalError(
					"An internal error occurred. Please try again later.",
					r.URL.Path,
				)
				errResp.WriteJSON(w)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
