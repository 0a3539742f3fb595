package metrics

import (
	"time"

	"mercator-hq/cachescript/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks load sessions.
//
// Metrics:
//   - cachescript_loader_sessions_total: finished sessions by outcome
//   - cachescript_loader_sessions_active: sessions in progress
//   - cachescript_loader_session_duration_seconds: session duration by outcome
//   - cachescript_loader_session_resources: resources per session
//   - cachescript_loader_resources_finished_total: finished resources by cache mode and source
type SessionMetrics struct {
	sessionsTotal *prometheus.CounterVec
	active        prometheus.Gauge
	duration      *prometheus.HistogramVec
	resources     prometheus.Histogram
	finishedTotal *prometheus.CounterVec
}

// NewSessionMetrics creates and registers session metrics with the provided registry.
func NewSessionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SessionMetrics {
	sm := &SessionMetrics{
		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sessions_total",
				Help:      "Total number of load sessions by outcome",
			},
			[]string{"outcome"},
		),

		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sessions_active",
				Help:      "Number of load sessions in progress",
			},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "session_duration_seconds",
				Help:      "Duration of load sessions in seconds",
				Buckets:   cfg.SessionDurationBuckets,
			},
			[]string{"outcome"},
		),

		resources: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "session_resources",
				Help:      "Number of resources per load session",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128
			},
		),

		finishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "resources_finished_total",
				Help:      "Total number of resources loaded by cache mode and source",
			},
			[]string{"mode", "source"},
		),
	}

	registry.MustRegister(
		sm.sessionsTotal,
		sm.active,
		sm.duration,
		sm.resources,
		sm.finishedTotal,
	)

	return sm
}

// RecordStart records a session start.
func (sm *SessionMetrics) RecordStart() {
	sm.active.Inc()
}

// RecordEnd records a session end.
func (sm *SessionMetrics) RecordEnd(outcome string, duration time.Duration, resources int) {
	sm.active.Dec()
	sm.sessionsTotal.WithLabelValues(outcome).Inc()
	sm.duration.WithLabelValues(outcome).Observe(duration.Seconds())
	sm.resources.Observe(float64(resources))
}

// RecordFinished records a finished resource.
func (sm *SessionMetrics) RecordFinished(mode, source string) {
	sm.finishedTotal.WithLabelValues(mode, source).Inc()
}
