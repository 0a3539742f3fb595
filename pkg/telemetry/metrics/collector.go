package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/cachescript/pkg/config"
	"mercator-hq/cachescript/pkg/manifest"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the main orchestrator for all Prometheus metrics in
// cachescript. It implements the loader's Recorder interface and exposes
// store and pruning gauges for the serve command.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	fetchMetrics   *FetchMetrics
	cacheMetrics   *CacheMetrics
	sessionMetrics *SessionMetrics

	// modules caps the number of distinct module label values
	modules *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true}
//	collector := metrics.NewCollector(cfg, nil)
//	l, _ := loader.New(loader.Config{Recorder: collector, ...})
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.FetchDurationBuckets) == 0 {
		cfg.FetchDurationBuckets = append([]float64(nil), config.DefaultFetchDurationBuckets...)
	}
	if len(cfg.SessionDurationBuckets) == 0 {
		cfg.SessionDurationBuckets = append([]float64(nil), config.DefaultSessionDurationBuckets...)
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		fetchMetrics:   NewFetchMetrics(cfg, registry),
		cacheMetrics:   NewCacheMetrics(cfg, registry),
		sessionMetrics: NewSessionMetrics(cfg, registry),
		modules:        NewCardinalityLimiter(1000),
	}
}

// module returns name, or "other" once the module label limit is reached.
func (c *Collector) module(name string) string {
	if c.modules.Allow(name) {
		return name
	}
	return "other"
}

// RecordFetch records a completed side-channel fetch.
//
// Parameters:
//   - module: resource name
//   - status: HTTP status, 0 when no response was received
//   - duration: fetch duration including retries
//   - err: transport error, if any
func (c *Collector) RecordFetch(module string, status int, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.fetchMetrics.Record(c.module(module), statusClass(status, err), duration)
}

// RecordCacheLookup records the result of a blob store lookup: "hit",
// "miss", "stale" or "error".
func (c *Collector) RecordCacheLookup(module, result string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordLookup(c.module(module), result)
}

// RecordFinished records a resource reaching the finished stage.
func (c *Collector) RecordFinished(module string, mode manifest.CacheMode, source string) {
	if !c.config.Enabled {
		return
	}
	c.sessionMetrics.RecordFinished(mode.String(), source)
}

// RecordSession records the end of a load session.
func (c *Collector) RecordSession(outcome string, duration time.Duration, resources int) {
	if !c.config.Enabled {
		return
	}
	c.sessionMetrics.RecordEnd(outcome, duration, resources)
}

// SessionStarted records the start of a load session.
func (c *Collector) SessionStarted() {
	if !c.config.Enabled {
		return
	}
	c.sessionMetrics.RecordStart()
}

// UpdateStoreSize sets the blob count and total size of the store.
func (c *Collector) UpdateStoreSize(blobs int, bytes int64) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.UpdateSize(blobs, bytes)
}

// RecordPruned records blobs removed by the retention pruner, by reason.
func (c *Collector) RecordPruned(reasons map[string]string) {
	if !c.config.Enabled {
		return
	}
	for _, reason := range reasons {
		c.cacheMetrics.RecordEviction(reason)
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func statusClass(status int, err error) string {
	switch {
	case err != nil:
		return "error"
	case status <= 0:
		return "none"
	default:
		return fmt.Sprintf("%dxx", status/100)
	}
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label value may be used. Known values are always
// allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
