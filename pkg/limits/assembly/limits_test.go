package assembly

import (
	"testing"

	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
)

func TestBuildOrdersGlobalBeforeMonthlyBeforeWindow(t *testing.T) {
	plan := &plans.SubscriptionPlan{
		MonthlyLimit:  1000,
		WindowLimit:   100,
		WindowSeconds: 60,
		Active:        true,
	}
	rules := []*plans.RateLimitRule{
		{Kind: plans.GlobalRuleKind, LimitValue: 5000, Active: true},
	}

	limits := Build("c1", plan, rules)
	if len(limits) != 3 {
		t.Fatalf("got %d limits, want 3: %+v", len(limits), limits)
	}
	if limits[0].Kind != KindGlobal || limits[1].Kind != KindMonthly || limits[2].Kind != KindWindow {
		t.Fatalf("got order %v %v %v, want GLOBAL MONTHLY WINDOW", limits[0].Kind, limits[1].Kind, limits[2].Kind)
	}
}

func TestBuildSkipsInactiveAndNonGlobalRules(t *testing.T) {
	plan := &plans.SubscriptionPlan{MonthlyLimit: 1000, Active: true}
	rules := []*plans.RateLimitRule{
		{Kind: plans.GlobalRuleKind, LimitValue: 100, Active: false},
		nil,
	}

	limits := Build("c1", plan, rules)
	if len(limits) != 1 || limits[0].Kind != KindMonthly {
		t.Fatalf("got %+v, want only the monthly limit", limits)
	}
}

func TestBuildNoPlanYieldsOnlyGlobalRules(t *testing.T) {
	rules := []*plans.RateLimitRule{{Kind: plans.GlobalRuleKind, LimitValue: 5000, Active: true}}

	limits := Build("c1", nil, rules)
	if len(limits) != 1 || limits[0].Kind != KindGlobal {
		t.Fatalf("got %+v, want a single global limit", limits)
	}
}

func TestBuildPlanWithoutWindowOmitsWindowLimit(t *testing.T) {
	plan := &plans.SubscriptionPlan{MonthlyLimit: 1000, Active: true}

	limits := Build("c1", plan, nil)
	if len(limits) != 1 || limits[0].Kind != KindMonthly {
		t.Fatalf("got %+v, want only the monthly limit", limits)
	}
}

func TestBuildEmptyWhenNoPlanAndNoRules(t *testing.T) {
	limits := Build("c1", nil, nil)
	if len(limits) != 0 {
		t.Fatalf("got %+v, want empty", limits)
	}
}
