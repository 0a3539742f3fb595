// Package metrics provides Prometheus metrics for cachescript.
//
// # Overview
//
// A Collector implements the loader's Recorder interface, so passing it as
// loader.Config.Recorder instruments every session:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	l, _ := loader.New(loader.Config{Recorder: collector, Fetcher: f})
//	http.Handle("/metrics", collector.Handler())
//
// # Metrics Categories
//
//   - Fetch Metrics: side-channel fetch count and latency by module
//   - Cache Metrics: store lookups by result (hit, miss, stale, error),
//     store size and retention evictions
//   - Session Metrics: sessions by outcome, active sessions, session
//     duration and finished resources by cache mode and source
//
// # Cardinality Management
//
// Module names are label values. After 1000 distinct modules further names
// are aggregated into "other".
package metrics
