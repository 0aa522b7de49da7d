package enforcement

import (
	"github.com/mercator-hq/quota-gate/pkg/limits/assembly"
	"github.com/mercator-hq/quota-gate/pkg/limits/evaluator"
)

// Decision is the throttle classification applied to a denied evaluation:
// a label plus the cooperative delay (possibly zero) the admission filter
// should sleep before responding.
type Decision struct {
	Throttle    Throttle
	SoftDelayMs int
}

// Classify applies the ordered throttle rules to a denied evaluation.
func Classify(result *evaluator.Result, thresholds Thresholds) Decision {
	if result.NoSubscription {
		return Decision{Throttle: ThrottleHard}
	}

	if result.ExceededKind == assembly.KindWindow || result.ExceededKind == assembly.KindMonthly {
		return Decision{Throttle: ThrottleHard}
	}

	// ExceededKind == GLOBAL from here on.
	ratio := result.GlobalUsageRatio

	if ratio >= thresholds.GlobalHardThreshold {
		return Decision{Throttle: ThrottleHard}
	}
	if ratio >= thresholds.GlobalSoftThreshold && thresholds.Mode == "soft" {
		return Decision{Throttle: ThrottleSoft, SoftDelayMs: thresholds.SoftDelayMs}
	}

	// A denial means count >= ceiling, i.e. ratio >= 1.0. This branch fires
	// when Mode == "hard", or when GlobalSoftThreshold is set above the
	// observed ratio (Validate does not cap it at 1.0).
	return Decision{Throttle: ThrottleHard}
}

// AdmittedWarning is an observability hook: when an admitted
// request's post-increment global usage ratio crosses the warn or full
// threshold, it reports which one so the caller can emit a structured log
// event. It never affects the admission outcome.
type AdmittedWarning struct {
	Fired bool
	Full  bool
	Ratio float64
}

// CheckAdmittedRatio evaluates the post-admission warning rule. ceiling <=
// 0 means the limit is disabled; no warning is ever produced for it.
func CheckAdmittedRatio(currentCount, ceiling int64, thresholds Thresholds) AdmittedWarning {
	if ceiling <= 0 {
		return AdmittedWarning{}
	}
	ratio := float64(currentCount) / float64(ceiling)
	switch {
	case ratio >= thresholds.GlobalFullThreshold:
		return AdmittedWarning{Fired: true, Full: true, Ratio: ratio}
	case ratio >= thresholds.GlobalWarnThreshold:
		return AdmittedWarning{Fired: true, Ratio: ratio}
	default:
		return AdmittedWarning{}
	}
}
