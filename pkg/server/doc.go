// Package server serves the document built by cachescript load sessions.
//
// The router is chi based:
//
//	GET  /          rendered HTML of the latest session's document
//	GET  /report    JSON stage report of the latest session
//	POST /reload    re-read the manifests and start a new session
//	GET  /healthz   liveness
//	GET  /readyz    readiness: store ping and last session outcome
//	GET  /version   build information
//	GET  /metrics   Prometheus metrics
//
// Health and metrics paths come from the telemetry configuration. A
// reload cancels the previous session once the new one has started; a
// reload with a broken manifest answers 422 and keeps the previous
// session.
package server
