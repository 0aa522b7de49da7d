package assembly

import (
	"sort"

	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
)

// Kind enumerates the three EffectiveLimit variants.
type Kind string

const (
	// KindGlobal is a system-wide rule from rate_limit_rules.
	KindGlobal Kind = "GLOBAL"
	// KindMonthly is a client's per-calendar-month ceiling.
	KindMonthly Kind = "MONTHLY"
	// KindWindow is a client's fixed-window ceiling.
	KindWindow Kind = "WINDOW"
)

// priority orders GLOBAL before MONTHLY before WINDOW: the
// system-wide policy is checked first so a global overflow is always
// reported as GLOBAL even when a client ceiling would also have failed.
var priority = map[Kind]int{
	KindGlobal:  0,
	KindMonthly: 1,
	KindWindow:  2,
}

// Limit is one EffectiveLimit record: a tagged ceiling to check against the
// counter store.
type Limit struct {
	Kind Kind

	// ClientID is set for MONTHLY and WINDOW; empty for GLOBAL.
	ClientID string

	// LimitValue is the ceiling to enforce.
	LimitValue int64

	// WindowSeconds is set for WINDOW always, and for GLOBAL when the rule
	// is windowed rather than monthly. Zero means "calendar month" for
	// GLOBAL, and is meaningless for MONTHLY (which is always calendar
	// month by definition).
	WindowSeconds int64
}

// Build assembles the ordered EffectiveLimit list for one client's
// admission decision: the client's plan-derived limits plus every active
// global rule, sorted GLOBAL < MONTHLY < WINDOW.
func Build(clientID string, plan *plans.SubscriptionPlan, globalRules []*plans.RateLimitRule) []Limit {
	var out []Limit

	if plan != nil {
		if plan.MonthlyLimit > 0 {
			out = append(out, Limit{Kind: KindMonthly, ClientID: clientID, LimitValue: plan.MonthlyLimit})
		}
		if plan.HasWindow() {
			out = append(out, Limit{
				Kind:          KindWindow,
				ClientID:      clientID,
				LimitValue:    plan.WindowLimit,
				WindowSeconds: plan.WindowSeconds,
			})
		}
	}

	for _, rule := range globalRules {
		if rule == nil || !rule.Active || rule.Kind != plans.GlobalRuleKind {
			continue
		}
		out = append(out, Limit{
			Kind:          KindGlobal,
			LimitValue:    rule.LimitValue,
			WindowSeconds: rule.GlobalWindowSeconds,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priority[out[i].Kind] < priority[out[j].Kind]
	})
	return out
}
