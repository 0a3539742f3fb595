// Package health provides liveness and readiness probes for the serve
// command.
//
// Liveness always succeeds while the process runs. Readiness runs the
// registered checks concurrently, each bounded by the check timeout:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("store", health.StoreCheck(store))
//	checker.RegisterCheck("session", health.SessionCheck(srv.Latest))
//
// The session check fails until a load session has finished every
// resource, and again whenever the latest session stalls or times out.
package health
