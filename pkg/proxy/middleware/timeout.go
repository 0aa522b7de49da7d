package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/mercator-hq/quota-gate/pkg/proxy/types"
)

// TimeoutMiddleware enforces a per-request timeout using
// context.WithTimeout. If the timeout is exceeded, the request context is
// cancelled and a 504 Gateway Timeout error is returned.
//
// The timeout covers the entire request pipeline including the counter
// store round trip and any soft-throttle delay. Handlers should check
// context.Done() to detect cancellation.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(w, r.WithContext(ctx))
			}()

			select {
			case <-done:
				return

			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					errResp := types.NewGatewayTimeoutError(
						"Request timeout: the request took too long to complete",
						r.URL.Path,
					)
					errResp.WriteJSON(w)
				}
			}
		})
	}
}
