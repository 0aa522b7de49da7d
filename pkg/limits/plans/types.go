// Package plans holds the durable entities behind an admission decision:
// subscription plans, clients, and global rate limit rules.
package plans

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// SubscriptionPlan defines the quota ceilings granted to clients subscribed
// to it. A plan's monthly limit is mandatory; the window limit is optional
// and, when present, always travels with a window duration.
type SubscriptionPlan struct {
	ID            string
	Name          string
	MonthlyLimit  int64
	WindowLimit   int64
	WindowSeconds int64
	Active        bool
	ExpiresAt     *time.Time
	CreatedAt     time.Time
}

// EffectivelyActive reports whether the plan currently grants quota: it must
// be marked active and, if it carries an expiry, that expiry must not have
// passed yet.
func (p *SubscriptionPlan) EffectivelyActive(now time.Time) bool {
	if p == nil || !p.Active {
		return false
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return false
	}
	return true
}

// HasWindow reports whether the plan carries a per-window limit in addition
// to its monthly ceiling.
func (p *SubscriptionPlan) HasWindow() bool {
	return p != nil && p.WindowLimit > 0 && p.WindowSeconds > 0
}

// Client is a caller identified by an opaque API key, subscribed to exactly
// one plan.
type Client struct {
	ID        string
	Name      string
	APIKey    string
	PlanID    string
	Active    bool
	CreatedAt time.Time
}

// APIKeyPrefix starts every issued API key.
const APIKeyPrefix = "rk_"

// GenerateAPIKey issues a new opaque API key: the rk_ prefix followed by a
// 32-character hex body. Keys are generated once at client creation and
// never regenerated.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(b), nil
}

// RuleKind enumerates the kinds of RateLimitRule. Only GLOBAL is modeled;
// per-client rules come from the client's plan instead.
type RuleKind string

// GlobalRuleKind is the sole RateLimitRule kind this service persists.
const GlobalRuleKind RuleKind = "GLOBAL"

// RateLimitRule is a system-wide ceiling that applies across all clients,
// independent of any one plan.
type RateLimitRule struct {
	ID                  string
	Kind                RuleKind
	LimitValue          int64
	GlobalWindowSeconds int64
	Active              bool
	CreatedAt           time.Time
}

// HasWindow reports whether the rule is windowed rather than monthly.
func (r *RateLimitRule) HasWindow() bool {
	return r != nil && r.GlobalWindowSeconds > 0
}
