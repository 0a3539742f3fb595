// Package telemetry groups the observability packages of cachescript.
//
//   - logging: slog loggers with URL and credential redaction
//   - metrics: Prometheus collector implementing loader.Recorder
//   - tracing: OpenTelemetry spans per session and per resource
//   - health: liveness and readiness probes for the serve command
//
// Each package is configured from its section of config.TelemetryConfig:
//
//	logger, _ := logging.New(logging.Config{Level: cfg.Telemetry.Logging.Level})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
package telemetry
