package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercator-hq/quota-gate/pkg/config"
)

// Admission outcome label values.
const (
	OutcomeAdmitted     = "admitted"
	OutcomeDenied       = "denied"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
	OutcomeNoPlan       = "no_subscription"
	OutcomeStoreError   = "store_error"
)

// AdmissionMetrics tracks the admission pipeline.
//
// Metrics:
//   - quotagate_ratelimit_admissions_total: admission decisions by outcome
//   - quotagate_ratelimit_throttle_total: denials by throttle and limit type
//   - quotagate_ratelimit_evaluator_duration_seconds: counter store round trip
//   - quotagate_ratelimit_soft_delay_seconds: applied soft-throttle delays
type AdmissionMetrics struct {
	admissionsTotal   *prometheus.CounterVec
	throttleTotal     *prometheus.CounterVec
	evaluatorDuration *prometheus.HistogramVec
	softDelay         prometheus.Histogram
}

// NewAdmissionMetrics creates and registers admission metrics with the
// provided registry.
func NewAdmissionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AdmissionMetrics {
	am := &AdmissionMetrics{
		admissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admissions_total",
				Help:      "Total number of admission decisions by outcome",
			},
			[]string{"outcome"},
		),

		throttleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "throttle_total",
				Help:      "Total number of throttled (denied) requests by throttle and limit type",
			},
			[]string{"throttle", "limit_type"},
		),

		evaluatorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluator_duration_seconds",
				Help:      "Duration of the atomic multi-limit evaluation round trip",
				Buckets:   cfg.EvaluatorDurationBuckets,
			},
			[]string{"outcome"},
		),

		softDelay: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "soft_delay_seconds",
				Help:      "Soft-throttle delays applied before responding 429",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
	}

	registry.MustRegister(
		am.admissionsTotal,
		am.throttleTotal,
		am.evaluatorDuration,
		am.softDelay,
	)

	return am
}

// RecordAdmission records one admission decision.
func (am *AdmissionMetrics) RecordAdmission(outcome string) {
	am.admissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordThrottle records one denial by throttle label and limit type.
func (am *AdmissionMetrics) RecordThrottle(throttle, limitType string) {
	am.throttleTotal.WithLabelValues(throttle, limitType).Inc()
}

// ObserveEvaluator records one counter store evaluation round trip.
func (am *AdmissionMetrics) ObserveEvaluator(outcome string, duration time.Duration) {
	am.evaluatorDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveSoftDelay records one applied soft-throttle delay.
func (am *AdmissionMetrics) ObserveSoftDelay(delay time.Duration) {
	am.softDelay.Observe(delay.Seconds())
}
