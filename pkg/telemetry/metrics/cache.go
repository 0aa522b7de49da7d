package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercator-hq/quota-gate/pkg/config"
)

// Subscription cache lookup result label values.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheNegative = "negative"
)

// CacheMetrics tracks the subscription resolver's cache.
//
// Metrics:
//   - quotagate_ratelimit_subscription_cache_lookups_total: lookups by result
type CacheMetrics struct {
	lookupsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics with the provided
// registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "subscription_cache_lookups_total",
				Help:      "Subscription cache lookups by result (hit, miss, negative)",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(cm.lookupsTotal)

	return cm
}

// RecordLookup records one subscription cache lookup.
func (cm *CacheMetrics) RecordLookup(result string) {
	cm.lookupsTotal.WithLabelValues(result).Inc()
}
