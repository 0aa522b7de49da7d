package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercator-hq/quota-gate/pkg/config"
)

// StoreMetrics tracks failures and housekeeping of the two backing stores.
//
// Metrics:
//   - quotagate_ratelimit_counter_store_errors_total: Redis failures by operation
//   - quotagate_ratelimit_durable_store_errors_total: SQLite failures by operation
//   - quotagate_ratelimit_wal_checkpoints_total: completed WAL checkpoints
type StoreMetrics struct {
	counterStoreErrors *prometheus.CounterVec
	durableStoreErrors *prometheus.CounterVec
	walCheckpoints     prometheus.Counter
}

// NewStoreMetrics creates and registers store metrics with the provided
// registry.
func NewStoreMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		counterStoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "counter_store_errors_total",
				Help:      "Counter store operation failures by operation",
			},
			[]string{"operation"},
		),

		durableStoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "durable_store_errors_total",
				Help:      "Durable store operation failures by operation",
			},
			[]string{"operation"},
		),

		walCheckpoints: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "wal_checkpoints_total",
				Help:      "Completed WAL checkpoints on the durable store",
			},
		),
	}

	registry.MustRegister(
		sm.counterStoreErrors,
		sm.durableStoreErrors,
		sm.walCheckpoints,
	)

	return sm
}

// RecordCounterStoreError records one failed counter store operation.
func (sm *StoreMetrics) RecordCounterStoreError(operation string) {
	sm.counterStoreErrors.WithLabelValues(operation).Inc()
}

// RecordDurableStoreError records one failed durable store operation.
func (sm *StoreMetrics) RecordDurableStoreError(operation string) {
	sm.durableStoreErrors.WithLabelValues(operation).Inc()
}

// RecordWALCheckpoint records one completed WAL checkpoint.
func (sm *StoreMetrics) RecordWALCheckpoint() {
	sm.walCheckpoints.Inc()
}
