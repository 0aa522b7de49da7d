package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/mercator-hq/quota-gate/pkg/limits/assembly"
	"github.com/mercator-hq/quota-gate/pkg/limits/storage"
	"github.com/mercator-hq/quota-gate/pkg/limits/timebucket"
)

// NoSubscriptionCeiling is the Ceiling value Result carries for the
// no-effective-subscription edge case: the caller denies with a hard
// throttle and a dedicated reason, and no counter is ever touched.
const NoSubscriptionCeiling = 0

// Result is the outcome of one Evaluate call: a rate limit result
// missing the throttle classification the enforcement package adds.
type Result struct {
	Allowed bool

	// NoSubscription marks a client with no effective plan. Evaluate never
	// sets it (it only sees a limit list); a caller that builds a Result for
	// that case sets it, and Classify maps it to a hard denial without
	// inspecting the other fields.
	NoSubscription bool

	// ExceededKind and the fields below are meaningful only when Allowed
	// is false and NoSubscription is false.
	ExceededKind assembly.Kind
	CurrentCount int64
	Ceiling      int64
	Remaining    int64

	RetryAfterSeconds int64

	// GlobalUsageRatio is CurrentCount/Ceiling when ExceededKind is
	// GLOBAL; zero otherwise.
	GlobalUsageRatio float64

	// Counts pairs every evaluated limit with its post-increment count,
	// in the same order as the limits passed to Evaluate. Populated only
	// when Allowed is true; the admission filter uses it for the
	// X-RateLimit-* headers and the post-admission global usage warning.
	Counts []LimitCount
}

// LimitCount is one evaluated limit and the counter value it reached after
// a successful increment.
type LimitCount struct {
	Kind    assembly.Kind
	Ceiling int64
	Count   int64
}

// RepresentativeClientLimit picks the most restrictive of the client's own
// limits (MONTHLY or WINDOW): the one with the fewest admissions left.
// Global limits are excluded because their remaining capacity says nothing
// about this client's quota. ok is false when the plan carried no client
// limit.
func (r *Result) RepresentativeClientLimit() (ceiling, remaining int64, ok bool) {
	for _, lc := range r.Counts {
		if lc.Kind == assembly.KindGlobal || lc.Ceiling <= 0 {
			continue
		}
		left := lc.Ceiling - lc.Count
		if left < 0 {
			left = 0
		}
		if !ok || left < remaining {
			ceiling, remaining, ok = lc.Ceiling, left, true
		}
	}
	return ceiling, remaining, ok
}

// MaxGlobalUsage returns the global limit with the highest post-increment
// usage ratio, for the admitted-path warning hooks. ok is false when no
// global limit was evaluated.
func (r *Result) MaxGlobalUsage() (usage LimitCount, ratio float64, ok bool) {
	for _, lc := range r.Counts {
		if lc.Kind != assembly.KindGlobal || lc.Ceiling <= 0 {
			continue
		}
		cur := float64(lc.Count) / float64(lc.Ceiling)
		if !ok || cur > ratio {
			usage, ratio, ok = lc, cur, true
		}
	}
	return usage, ratio, ok
}

// Evaluator runs the atomic check-and-increment against a CounterStore for
// one client's ordered EffectiveLimit list.
type Evaluator struct {
	store     storage.CounterStore
	keyPrefix timebucket.KeyPrefix
	clock     func() time.Time
}

// New returns an Evaluator backed by store, namespacing every key under
// keyPrefix, using the real wall clock.
func New(store storage.CounterStore, keyPrefix string) *Evaluator {
	return &Evaluator{store: store, keyPrefix: timebucket.KeyPrefix(keyPrefix), clock: time.Now}
}

// NewWithClock is like New but uses clock instead of the wall clock, for
// deterministic bucket-boundary tests.
func NewWithClock(store storage.CounterStore, keyPrefix string, clock func() time.Time) *Evaluator {
	return &Evaluator{store: store, keyPrefix: timebucket.KeyPrefix(keyPrefix), clock: clock}
}

// Evaluate performs the atomic multi-limit check-and-increment against the
// counter store. An empty limits list admits unconditionally. A non-nil
// error means the counter store could not be reached; callers must map
// this to 503 and must not admit (fail closed).
func (e *Evaluator) Evaluate(ctx context.Context, clientID string, limits []assembly.Limit) (*Result, error) {
	if len(limits) == 0 {
		return &Result{Allowed: true, Remaining: -1}, nil
	}

	now := e.clock()
	keys := make([]string, len(limits))
	ceilings := make([]int64, len(limits))
	ttls := make([]time.Duration, len(limits))

	for i, limit := range limits {
		bucket := e.bucketFor(limit, clientID, now)
		keys[i] = bucket.Key
		ceilings[i] = limit.LimitValue
		ttls[i] = bucket.TTL
	}

	eval, err := e.store.Evaluate(ctx, keys, ceilings, ttls)
	if err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}

	if eval.Admitted {
		counts := make([]LimitCount, len(limits))
		for i, limit := range limits {
			counts[i] = LimitCount{Kind: limit.Kind, Ceiling: limit.LimitValue}
			if i < len(eval.PostCounts) {
				counts[i].Count = eval.PostCounts[i]
			}
		}
		return &Result{Allowed: true, RetryAfterSeconds: eval.MaxTTLSeconds, Counts: counts}, nil
	}

	failed := limits[eval.FailedIndex]
	result := &Result{
		Allowed:           false,
		ExceededKind:      failed.Kind,
		CurrentCount:      eval.CurrentCount,
		Ceiling:           eval.Ceiling,
		Remaining:         0,
		RetryAfterSeconds: eval.ResidualTTLSeconds,
	}
	if failed.Kind == assembly.KindGlobal && eval.Ceiling > 0 {
		result.GlobalUsageRatio = float64(eval.CurrentCount) / float64(eval.Ceiling)
	}
	return result, nil
}

func (e *Evaluator) bucketFor(limit assembly.Limit, clientID string, now time.Time) timebucket.Bucket {
	switch limit.Kind {
	case assembly.KindWindow:
		return timebucket.ClientWindowBucket(e.keyPrefix, clientID, limit.WindowSeconds, now)
	case assembly.KindMonthly:
		return timebucket.ClientMonthlyBucket(e.keyPrefix, clientID, now)
	case assembly.KindGlobal:
		if limit.WindowSeconds > 0 {
			return timebucket.GlobalWindowBucket(e.keyPrefix, limit.WindowSeconds, now)
		}
		return timebucket.GlobalMonthlyBucket(e.keyPrefix, now)
	default:
		return timebucket.Bucket{}
	}
}
