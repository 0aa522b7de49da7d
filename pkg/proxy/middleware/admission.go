package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mercator-hq/quota-gate/pkg/limits/assembly"
	"github.com/mercator-hq/quota-gate/pkg/limits/enforcement"
	"github.com/mercator-hq/quota-gate/pkg/limits/evaluator"
	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
	"github.com/mercator-hq/quota-gate/pkg/proxy/types"
	"github.com/mercator-hq/quota-gate/pkg/telemetry/metrics"
)

// Rate limit response headers.
const (
	APIKeyHeader             = "X-API-Key"
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RetryAfterHeader         = "Retry-After"
	ThrottleTypeHeader       = "X-Throttle-Type"
	SuggestedDelayHeader     = "X-Suggested-Delay-Ms"
)

// notifyPathPrefix is the protected path space; everything else passes the
// filter untouched.
const notifyPathPrefix = "/api/notify/"

// ClientSource resolves an API key to a client.
type ClientSource interface {
	GetClientByAPIKey(ctx context.Context, apiKey string) (*plans.Client, error)
}

// RuleSource lists the active global rules to enforce on every request.
type RuleSource interface {
	ListActiveRules(ctx context.Context) ([]*plans.RateLimitRule, error)
}

// PlanSource returns a client's currently effective plan, or nil when the
// client has no effective subscription.
type PlanSource interface {
	Resolve(ctx context.Context, clientID string) (*plans.SubscriptionPlan, error)
}

// LimitEvaluator runs the atomic multi-limit check-and-increment.
type LimitEvaluator interface {
	Evaluate(ctx context.Context, clientID string, limits []assembly.Limit) (*evaluator.Result, error)
}

// AdmissionConfig wires an AdmissionFilter's collaborators.
type AdmissionConfig struct {
	Clients    ClientSource
	Plans      PlanSource
	Rules      RuleSource
	Evaluator  LimitEvaluator
	Thresholds *enforcement.Provider

	// HeaderName is the header carrying the API key; defaults to
	// X-API-Key.
	HeaderName string

	// SoftDelayCap bounds the applied soft-throttle delay regardless of
	// what the thresholds request. Zero means no extra cap beyond the
	// thresholds' own validation.
	SoftDelayCap time.Duration

	// Collector records admission metrics; may be nil.
	Collector *metrics.Collector
}

// AdmissionFilter is the HTTP boundary of the rate limiter. For every
// request under /api/notify/ it resolves the calling client from its API
// key, builds the client's effective limit list, runs the atomic
// evaluation, and either forwards to the protected handler or rejects with
// a 429 carrying retry guidance. Counter store failures reject with 503:
// the gateway fails closed rather than letting an outage disable metering.
type AdmissionFilter struct {
	clients    ClientSource
	plans      PlanSource
	rules      RuleSource
	evaluator  LimitEvaluator
	thresholds *enforcement.Provider
	headerName string
	delayCap   time.Duration
	collector  *metrics.Collector

	// sleep is swappable so tests assert the soft-delay path without
	// waiting on a real clock.
	sleep func(ctx context.Context, d time.Duration)
}

// NewAdmissionFilter creates an admission filter from cfg.
func NewAdmissionFilter(cfg AdmissionConfig) *AdmissionFilter {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = APIKeyHeader
	}
	return &AdmissionFilter{
		clients:    cfg.Clients,
		plans:      cfg.Plans,
		rules:      cfg.Rules,
		evaluator:  cfg.Evaluator,
		thresholds: cfg.Thresholds,
		headerName: headerName,
		delayCap:   cfg.SoftDelayCap,
		collector:  cfg.Collector,
		sleep:      sleepContext,
	}
}

// Middleware wraps next with the admission decision.
func (f *AdmissionFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, notifyPathPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		// CORS preflights are identified by method, never metered.
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		path := r.URL.Path

		apiKey := strings.TrimSpace(r.Header.Get(f.headerName))
		if apiKey == "" {
			f.recordAdmission(metrics.OutcomeUnauthorized)
			types.NewUnauthorizedError("Missing "+f.headerName+" header", path).WriteJSON(w)
			return
		}

		client, err := f.clients.GetClientByAPIKey(ctx, apiKey)
		if err != nil {
			f.failClosed(w, r, "client lookup failed", err)
			return
		}
		if client == nil {
			f.recordAdmission(metrics.OutcomeUnauthorized)
			types.NewUnauthorizedError("Invalid API key", path).WriteJSON(w)
			return
		}
		if !client.Active {
			f.recordAdmission(metrics.OutcomeForbidden)
			types.NewForbiddenError("Client is inactive", path).WriteJSON(w)
			return
		}

		ctx = context.WithValue(ctx, ClientIDKey, client.ID)
		r = r.WithContext(ctx)

		plan, err := f.plans.Resolve(ctx, client.ID)
		if err != nil {
			f.failClosed(w, r, "subscription resolution failed", err)
			return
		}
		if plan == nil {
			f.denyNoSubscription(w, r, client)
			return
		}

		rules, err := f.rules.ListActiveRules(ctx)
		if err != nil {
			f.failClosed(w, r, "global rule lookup failed", err)
			return
		}

		limits := assembly.Build(client.ID, plan, rules)

		// The caller may already be gone; do not touch counters for a
		// request nobody is waiting on. Once Evaluate has committed, the
		// increment stands regardless of cancellation.
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		result, err := f.evaluator.Evaluate(ctx, client.ID, limits)
		if err != nil {
			f.observeEvaluator(metrics.OutcomeStoreError, time.Since(start))
			f.failClosed(w, r, "limit evaluation failed", err)
			return
		}

		if result.Allowed {
			f.observeEvaluator(metrics.OutcomeAdmitted, time.Since(start))
			f.admit(w, r, next, client, result)
			return
		}

		f.observeEvaluator(metrics.OutcomeDenied, time.Since(start))
		f.deny(w, r, client, result)
	})
}

// admit sets the success-path headers, emits the global usage warnings,
// and forwards to the protected handler.
func (f *AdmissionFilter) admit(w http.ResponseWriter, r *http.Request, next http.Handler, client *plans.Client, result *evaluator.Result) {
	if ceiling, remaining, ok := result.RepresentativeClientLimit(); ok {
		w.Header().Set(RateLimitLimitHeader, strconv.FormatInt(ceiling, 10))
		w.Header().Set(RateLimitRemainingHeader, strconv.FormatInt(remaining, 10))
	}

	f.warnOnGlobalUsage(r.Context(), result)
	f.recordAdmission(metrics.OutcomeAdmitted)

	next.ServeHTTP(w, r)
}

// warnOnGlobalUsage emits the post-admission observability events. They
// never change the admission outcome.
func (f *AdmissionFilter) warnOnGlobalUsage(ctx context.Context, result *evaluator.Result) {
	usage, ratio, ok := result.MaxGlobalUsage()
	if !ok {
		return
	}
	t := f.thresholds.Current()

	if ratio >= t.GlobalWarnThreshold {
		slog.WarnContext(ctx, "global rate limit usage high",
			"usage_percent", fmt.Sprintf("%.0f", ratio*100),
			"current", usage.Count,
			"ceiling", usage.Ceiling,
		)
	}
	if ratio >= t.GlobalFullThreshold {
		slog.WarnContext(ctx, "global rate limit at or over capacity",
			"usage_percent", fmt.Sprintf("%.0f", ratio*100),
			"current", usage.Count,
			"ceiling", usage.Ceiling,
		)
	}
}

// deny classifies the denial, applies the soft delay when called for, and
// writes the 429.
func (f *AdmissionFilter) deny(w http.ResponseWriter, r *http.Request, client *plans.Client, result *evaluator.Result) {
	t := f.thresholds.Current()
	decision := enforcement.Classify(result, t)

	delay := time.Duration(decision.SoftDelayMs) * time.Millisecond
	if f.delayCap > 0 && delay > f.delayCap {
		delay = f.delayCap
	}
	if decision.Throttle == enforcement.ThrottleSoft && delay > 0 {
		f.sleep(r.Context(), delay)
		if f.collector != nil {
			f.collector.Admission().ObserveSoftDelay(delay)
		}
	}

	f.recordAdmission(metrics.OutcomeDenied)
	if f.collector != nil {
		f.collector.Admission().RecordThrottle(string(decision.Throttle), string(result.ExceededKind))
	}

	slog.WarnContext(r.Context(), "request denied by rate limiter",
		"client_id", client.ID,
		"limit_type", string(result.ExceededKind),
		"throttle", string(decision.Throttle),
		"current", result.CurrentCount,
		"ceiling", result.Ceiling,
		"retry_after_s", result.RetryAfterSeconds,
	)

	w.Header().Set(RetryAfterHeader, strconv.FormatInt(result.RetryAfterSeconds, 10))
	w.Header().Set(ThrottleTypeHeader, string(decision.Throttle))
	if delay > 0 && decision.Throttle == enforcement.ThrottleSoft {
		w.Header().Set(SuggestedDelayHeader, strconv.FormatInt(delay.Milliseconds(), 10))
	}
	if result.Ceiling > 0 {
		w.Header().Set(RateLimitLimitHeader, strconv.FormatInt(result.Ceiling, 10))
		w.Header().Set(RateLimitRemainingHeader, "0")
	}

	limitDesc := "Your subscription plan limit"
	if result.ExceededKind == assembly.KindGlobal {
		limitDesc = "Global system limit"
	}
	message := fmt.Sprintf("%s exhausted. Limit: %d requests. Retry after %s.",
		limitDesc, result.Ceiling, humanizeSeconds(result.RetryAfterSeconds))

	appliedDelayMs := int64(0)
	if decision.Throttle == enforcement.ThrottleSoft {
		appliedDelayMs = delay.Milliseconds()
	}

	types.NewRateLimitedResponse(
		message, r.URL.Path,
		string(result.ExceededKind), string(decision.Throttle),
		result.Ceiling, result.CurrentCount, result.RetryAfterSeconds, appliedDelayMs,
	).WriteJSON(w)
}

// denyNoSubscription rejects a client with no effective plan. The counter
// store is never touched on this path.
func (f *AdmissionFilter) denyNoSubscription(w http.ResponseWriter, r *http.Request, client *plans.Client) {
	f.recordAdmission(metrics.OutcomeNoPlan)
	if f.collector != nil {
		f.collector.Admission().RecordThrottle(string(enforcement.ThrottleHard), "NONE")
	}

	slog.WarnContext(r.Context(), "request denied: no active subscription",
		"client_id", client.ID,
	)

	w.Header().Set(ThrottleTypeHeader, string(enforcement.ThrottleHard))
	types.NewRateLimitedResponse(
		"No active subscription for this API key. Subscribe to a plan to send notifications.",
		r.URL.Path,
		"NONE", string(enforcement.ThrottleHard),
		0, 0, 0, 0,
	).WriteJSON(w)
}

// failClosed maps any store failure to 503 without invoking the protected
// handler.
func (f *AdmissionFilter) failClosed(w http.ResponseWriter, r *http.Request, msg string, err error) {
	f.recordAdmission(metrics.OutcomeStoreError)
	if f.collector != nil {
		f.collector.Store().RecordCounterStoreError("admission")
	}

	slog.ErrorContext(r.Context(), msg,
		"path", r.URL.Path,
		"error", err,
	)

	types.NewServiceUnavailableError(
		"Rate limiting service temporarily unavailable",
		r.URL.Path,
	).WriteJSON(w)
}

func (f *AdmissionFilter) recordAdmission(outcome string) {
	if f.collector != nil {
		f.collector.Admission().RecordAdmission(outcome)
	}
}

func (f *AdmissionFilter) observeEvaluator(outcome string, d time.Duration) {
	if f.collector != nil {
		f.collector.Admission().ObserveEvaluator(outcome, d)
	}
}

// sleepContext sleeps for d or until ctx is cancelled, whichever comes
// first. The goroutine parks on a timer; no OS thread is pinned.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// humanizeSeconds renders a retry hint for the denial message.
func humanizeSeconds(s int64) string {
	switch {
	case s <= 0:
		return "a moment"
	case s < 60:
		return fmt.Sprintf("%d seconds", s)
	case s < 3600:
		return fmt.Sprintf("%d minutes", (s+59)/60)
	default:
		return fmt.Sprintf("%d hours", (s+3599)/3600)
	}
}
