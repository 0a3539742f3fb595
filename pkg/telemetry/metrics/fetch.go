package metrics

import (
	"time"

	"mercator-hq/cachescript/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// FetchMetrics tracks side-channel fetches.
//
// Metrics:
//   - cachescript_loader_fetches_total: fetches by module and status class
//   - cachescript_loader_fetch_duration_seconds: fetch latency by module
type FetchMetrics struct {
	fetchesTotal  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewFetchMetrics creates and registers fetch metrics with the provided registry.
func NewFetchMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *FetchMetrics {
	fm := &FetchMetrics{
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fetches_total",
				Help:      "Total number of side-channel fetches",
			},
			[]string{"module", "status"},
		),

		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of side-channel fetches in seconds",
				Buckets:   cfg.FetchDurationBuckets,
			},
			[]string{"module"},
		),
	}

	registry.MustRegister(fm.fetchesTotal, fm.fetchDuration)
	return fm
}

// Record records one fetch.
func (fm *FetchMetrics) Record(module, status string, duration time.Duration) {
	fm.fetchesTotal.WithLabelValues(module, status).Inc()
	fm.fetchDuration.WithLabelValues(module).Observe(duration.Seconds())
}
