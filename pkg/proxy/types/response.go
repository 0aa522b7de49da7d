package types

import (
	"time"

	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
)

// NotificationResponse is the 200 body of the notify endpoints.
type NotificationResponse struct {
	Success   bool   `json:"success"`
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// PlanResponse is the admin surface's view of a subscription plan.
type PlanResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	MonthlyLimit  int64      `json:"monthlyLimit"`
	WindowLimit   int64      `json:"windowLimit,omitempty"`
	WindowSeconds int64      `json:"windowSeconds,omitempty"`
	Active        bool       `json:"active"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewPlanResponse converts a stored plan.
func NewPlanResponse(p *plans.SubscriptionPlan) *PlanResponse {
	return &PlanResponse{
		ID:            p.ID,
		Name:          p.Name,
		MonthlyLimit:  p.MonthlyLimit,
		WindowLimit:   p.WindowLimit,
		WindowSeconds: p.WindowSeconds,
		Active:        p.Active,
		ExpiresAt:     p.ExpiresAt,
		CreatedAt:     p.CreatedAt,
	}
}

// ClientResponse is the admin surface's view of a client. The API key is
// returned in full only from the create call; list and get responses mask
// everything past the prefix.
type ClientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"apiKey"`
	PlanID    string    `json:"planId"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewClientResponse converts a stored client, exposing the full API key.
func NewClientResponse(c *plans.Client) *ClientResponse {
	return &ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		APIKey:    c.APIKey,
		PlanID:    c.PlanID,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

// NewMaskedClientResponse converts a stored client with the API key body
// replaced by its prefix, for list and get responses.
func NewMaskedClientResponse(c *plans.Client) *ClientResponse {
	resp := NewClientResponse(c)
	if len(resp.APIKey) > 8 {
		resp.APIKey = resp.APIKey[:8] + "..."
	}
	return resp
}

// RuleResponse is the admin surface's view of a global rate limit rule.
type RuleResponse struct {
	ID                  string    `json:"id"`
	Kind                string    `json:"kind"`
	LimitValue          int64     `json:"limitValue"`
	GlobalWindowSeconds int64     `json:"globalWindowSeconds,omitempty"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"createdAt"`
}

// NewRuleResponse converts a stored rule.
func NewRuleResponse(r *plans.RateLimitRule) *RuleResponse {
	return &RuleResponse{
		ID:                  r.ID,
		Kind:                string(r.Kind),
		LimitValue:          r.LimitValue,
		GlobalWindowSeconds: r.GlobalWindowSeconds,
		Active:              r.Active,
		CreatedAt:           r.CreatedAt,
	}
}
