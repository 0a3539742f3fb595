package metrics

import (
	"mercator-hq/cachescript/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks blob store behaviour.
//
// Metrics:
//   - cachescript_loader_cache_lookups_total: lookups by module and result
//   - cachescript_loader_cache_entries: blobs currently stored
//   - cachescript_loader_cache_bytes: total stored content size
//   - cachescript_loader_cache_evictions_total: blobs removed by the pruner
type CacheMetrics struct {
	lookupsTotal   *prometheus.CounterVec
	entries        prometheus.Gauge
	bytes          prometheus.Gauge
	evictionsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_lookups_total",
				Help:      "Total number of blob store lookups by result",
			},
			[]string{"module", "result"},
		),

		entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Current number of blobs in the store",
			},
		),

		bytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_bytes",
				Help:      "Total size of stored content in bytes",
			},
		),

		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of blobs removed by retention",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		cm.lookupsTotal,
		cm.entries,
		cm.bytes,
		cm.evictionsTotal,
	)

	return cm
}

// RecordLookup records a store lookup.
func (cm *CacheMetrics) RecordLookup(module, result string) {
	cm.lookupsTotal.WithLabelValues(module, result).Inc()
}

// UpdateSize sets the stored blob count and size.
func (cm *CacheMetrics) UpdateSize(entries int, bytes int64) {
	cm.entries.Set(float64(entries))
	cm.bytes.Set(float64(bytes))
}

// RecordEviction records a pruned blob.
//
// The hit rate is best derived in PromQL:
//
//	sum(rate(cachescript_loader_cache_lookups_total{result="hit"}[5m])) /
//	sum(rate(cachescript_loader_cache_lookups_total[5m]))
func (cm *CacheMetrics) RecordEviction(reason string) {
	cm.evictionsTotal.WithLabelValues(reason).Inc()
}
