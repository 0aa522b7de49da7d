package types

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	// Timestamp is when the error was produced, RFC 3339 UTC.
	Timestamp time.Time `json:"timestamp"`

	// Status is the HTTP status code, duplicated in the body so clients
	// that log bodies alone keep the full picture.
	Status int `json:"status"`

	// Error is the machine-readable error name, e.g. "Unauthorized".
	Error string `json:"error"`

	// Message is the human-readable explanation.
	Message string `json:"message"`

	// Path is the request path that produced the error.
	Path string `json:"path,omitempty"`
}

// Error name constants.
const (
	ErrorUnauthorized       = "Unauthorized"
	ErrorForbidden          = "Forbidden"
	ErrorBadRequest         = "Bad Request"
	ErrorNotFound           = "Not Found"
	ErrorConflict           = "Conflict"
	ErrorTooManyRequests    = "Too Many Requests"
	ErrorInternal           = "Internal Server Error"
	ErrorServiceUnavailable = "Service Unavailable"
	ErrorGatewayTimeout     = "Gateway Timeout"
)

// NewErrorResponse creates an error body with the current timestamp.
func NewErrorResponse(status int, errName, message, path string) *ErrorResponse {
	return &ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     errName,
		Message:   message,
		Path:      path,
	}
}

// NewUnauthorizedError creates a 401 body.
func NewUnauthorizedError(message, path string) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, ErrorUnauthorized, message, path)
}

// NewForbiddenError creates a 403 body.
func NewForbiddenError(message, path string) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, ErrorForbidden, message, path)
}

// NewBadRequestError creates a 400 body.
func NewBadRequestError(message, path string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, ErrorBadRequest, message, path)
}

// NewNotFoundError creates a 404 body.
func NewNotFoundError(message, path string) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, ErrorNotFound, message, path)
}

// NewConflictError creates a 409 body, used by the admin surface for
// unique-constraint violations (duplicate plan name, duplicate API key).
func NewConflictError(message, path string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, ErrorConflict, message, path)
}

// NewInternalError creates a 500 body.
func NewInternalError(message, path string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, ErrorInternal, message, path)
}

// NewServiceUnavailableError creates a 503 body. The admission path uses it
// for counter-store and durable-store outages: the gateway fails closed
// rather than admitting unmetered traffic.
func NewServiceUnavailableError(message, path string) *ErrorResponse {
	return NewErrorResponse(http.StatusServiceUnavailable, ErrorServiceUnavailable, message, path)
}

// NewGatewayTimeoutError creates a 504 body.
func NewGatewayTimeoutError(message, path string) *ErrorResponse {
	return NewErrorResponse(http.StatusGatewayTimeout, ErrorGatewayTimeout, message, path)
}

// WriteJSON writes the error to w with its own status code.
func (e *ErrorResponse) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}

// RateLimitedResponse is the 429 body. It extends the common error envelope
// with the metadata a client needs to back off: which ceiling was hit, how
// it was throttled, and when a retry may succeed.
type RateLimitedResponse struct {
	ErrorResponse

	// LimitType is GLOBAL, MONTHLY, WINDOW, or NONE for the
	// no-active-subscription denial.
	LimitType string `json:"limitType"`

	// ThrottleType is HARD or SOFT.
	ThrottleType string `json:"throttleType"`

	// Limit is the ceiling that was hit.
	Limit int64 `json:"limit"`

	// Current is the counter value observed at denial time.
	Current int64 `json:"current"`

	// RetryAfterSeconds mirrors the Retry-After header.
	RetryAfterSeconds int64 `json:"retryAfterSeconds"`

	// SuggestedDelayMs is the soft-throttle delay that was applied, zero
	// for hard denials.
	SuggestedDelayMs int64 `json:"suggestedDelayMs"`
}

// NewRateLimitedResponse creates a 429 body.
func NewRateLimitedResponse(message, path, limitType, throttleType string, limit, current, retryAfterSeconds, suggestedDelayMs int64) *RateLimitedResponse {
	return &RateLimitedResponse{
		ErrorResponse:     *NewErrorResponse(http.StatusTooManyRequests, ErrorTooManyRequests, message, path),
		LimitType:         limitType,
		ThrottleType:      throttleType,
		Limit:             limit,
		Current:           current,
		RetryAfterSeconds: retryAfterSeconds,
		SuggestedDelayMs:  suggestedDelayMs,
	}
}

// WriteJSON writes the 429 body with its status code.
func (e *RateLimitedResponse) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}
