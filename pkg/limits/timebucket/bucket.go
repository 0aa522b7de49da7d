// Package timebucket maps a (client, limit kind, wall clock) triple to a
// counter key and the TTL that should be set on that key's first increment.
//
// Two disciplines are implemented: a fixed-window counter, which aligns
// bucket boundaries to multiples of the window size, and a monthly counter,
// which aligns to the UTC calendar month. Both are O(1) and need no
// coordination beyond the counter store itself.
package timebucket

import (
	"fmt"
	"time"
)

// KeyPrefix namespaces every key this package builds, matching the counter
// store's configured prefix (e.g. "quotagate").
type KeyPrefix string

// Bucket is a counter key paired with the TTL to apply when the key is
// created (its value transitions from absent to 1).
type Bucket struct {
	Key string
	TTL time.Duration
}

// ClientWindowBucket returns the fixed-window bucket for a per-client
// window limit. The window boundary is floor(now / windowSeconds) *
// windowSeconds; the TTL on first write is the window length.
func ClientWindowBucket(prefix KeyPrefix, clientID string, windowSeconds int64, now time.Time) Bucket {
	boundary := alignedBoundary(now, windowSeconds)
	return Bucket{
		Key: fmt.Sprintf("%s:rl:c:%s:w:%d", prefix, clientID, boundary),
		TTL: time.Duration(windowSeconds) * time.Second,
	}
}

// ClientMonthlyBucket returns the calendar-month bucket for a per-client
// monthly limit.
func ClientMonthlyBucket(prefix KeyPrefix, clientID string, now time.Time) Bucket {
	return Bucket{
		Key: fmt.Sprintf("%s:rl:c:%s:m:%s", prefix, clientID, yyyymm(now)),
		TTL: untilNextMonth(now),
	}
}

// GlobalWindowBucket returns the fixed-window bucket for a global rule.
func GlobalWindowBucket(prefix KeyPrefix, windowSeconds int64, now time.Time) Bucket {
	boundary := alignedBoundary(now, windowSeconds)
	return Bucket{
		Key: fmt.Sprintf("%s:rl:g:w:%d", prefix, boundary),
		TTL: time.Duration(windowSeconds) * time.Second,
	}
}

// GlobalMonthlyBucket returns the calendar-month bucket for a global rule
// with no configured window (i.e. a monthly-only global ceiling).
func GlobalMonthlyBucket(prefix KeyPrefix, now time.Time) Bucket {
	return Bucket{
		Key: fmt.Sprintf("%s:rl:g:m:%s", prefix, yyyymm(now)),
		TTL: untilNextMonth(now),
	}
}

// SubscriptionCacheKey returns the subscription resolver's cache key for a
// client. It carries no TTL of its own; the resolver computes the TTL.
func SubscriptionCacheKey(prefix KeyPrefix, clientID string) string {
	return fmt.Sprintf("%s:sub:cache:%s", prefix, clientID)
}

// alignedBoundary returns floor(now_unix_seconds / windowSeconds) *
// windowSeconds. windowSeconds must be positive; callers are responsible
// for skipping disabled (zero) windows before calling this.
func alignedBoundary(now time.Time, windowSeconds int64) int64 {
	sec := now.Unix()
	return (sec / windowSeconds) * windowSeconds
}

// yyyymm formats the UTC calendar year-month, e.g. "202608".
func yyyymm(now time.Time) string {
	return now.UTC().Format("200601")
}

// untilNextMonth returns the duration from now to the first instant of the
// next UTC calendar month.
func untilNextMonth(now time.Time) time.Duration {
	u := now.UTC()
	nextMonth := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return nextMonth.Sub(u)
}
