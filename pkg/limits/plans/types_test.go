package plans

import (
	"testing"
	"time"
)

func TestSubscriptionPlanEffectivelyActive(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		plan *SubscriptionPlan
		want bool
	}{
		{"nil plan", nil, false},
		{"inactive", &SubscriptionPlan{Active: false}, false},
		{"active no expiry", &SubscriptionPlan{Active: true}, true},
		{"active expires in future", &SubscriptionPlan{Active: true, ExpiresAt: &future}, true},
		{"active expired", &SubscriptionPlan{Active: true, ExpiresAt: &past}, false},
		{"active expires exactly now", &SubscriptionPlan{Active: true, ExpiresAt: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plan.EffectivelyActive(now); got != tt.want {
				t.Errorf("EffectivelyActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscriptionPlanHasWindow(t *testing.T) {
	if (&SubscriptionPlan{WindowLimit: 0, WindowSeconds: 60}).HasWindow() {
		t.Error("expected no window when WindowLimit is zero")
	}
	if (&SubscriptionPlan{WindowLimit: 5, WindowSeconds: 0}).HasWindow() {
		t.Error("expected no window when WindowSeconds is zero")
	}
	if !(&SubscriptionPlan{WindowLimit: 5, WindowSeconds: 60}).HasWindow() {
		t.Error("expected window when both fields are positive")
	}
}

func TestRateLimitRuleHasWindow(t *testing.T) {
	if (&RateLimitRule{GlobalWindowSeconds: 0}).HasWindow() {
		t.Error("expected monthly (no window) when GlobalWindowSeconds is zero")
	}
	if !(&RateLimitRule{GlobalWindowSeconds: 3600}).HasWindow() {
		t.Error("expected window when GlobalWindowSeconds is positive")
	}
}

func TestGenerateAPIKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key, err := GenerateAPIKey()
		if err != nil {
			t.Fatalf("GenerateAPIKey: %v", err)
		}
		if len(key) != len(APIKeyPrefix)+32 {
			t.Fatalf("key %q has wrong length", key)
		}
		if key[:len(APIKeyPrefix)] != APIKeyPrefix {
			t.Fatalf("key %q missing prefix", key)
		}
		for _, c := range key[len(APIKeyPrefix):] {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
				t.Fatalf("key %q has non-hex body", key)
			}
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}
