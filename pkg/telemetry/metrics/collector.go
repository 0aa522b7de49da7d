package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercator-hq/quota-gate/pkg/config"
)

// Collector is the main orchestrator for all Prometheus metrics in the
// gateway. It manages metric registration and provides a unified interface
// for recording metrics across all components.
//
// The collector is designed for the admission hot path: every metric
// instance is pre-allocated at construction, so recording is a single
// atomic add with no locking or lookup beyond the label resolution.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Admission pipeline metrics
	admissionMetrics *AdmissionMetrics

	// Subscription cache metrics
	cacheMetrics *CacheMetrics

	// Counter/durable store metrics
	storeMetrics *StoreMetrics
}

// NewCollector creates a new metrics collector with all metric families
// registered. If registry is nil, a new registry is created (the common
// case; passing one in is for tests that assert on gathered samples).
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.admissionMetrics = NewAdmissionMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)
	c.storeMetrics = NewStoreMetrics(cfg, registry)

	return c
}

// Admission returns the admission pipeline metrics.
func (c *Collector) Admission() *AdmissionMetrics {
	return c.admissionMetrics
}

// Cache returns the subscription cache metrics.
func (c *Collector) Cache() *CacheMetrics {
	return c.cacheMetrics
}

// Store returns the backing store metrics.
func (c *Collector) Store() *StoreMetrics {
	return c.storeMetrics
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
