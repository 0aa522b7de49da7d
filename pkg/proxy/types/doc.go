// Package types defines the request, response, and error envelopes used by
// the notification gateway's HTTP surface.
//
// Every error response shares one JSON shape, carrying a machine-readable
// error name, a human message, and enough request context (timestamp, path,
// status) to correlate a client-observed failure with server logs. Denials
// from the rate limiter extend that shape with the limit metadata a caller
// needs to back off correctly.
package types
