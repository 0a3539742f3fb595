// Package tracing provides OpenTelemetry tracing for cachescript.
//
// Each load session is a "loader.session" span with one "loader.acquire"
// child per resource. Spans are exported over OTLP gRPC when
// telemetry.tracing.enabled is set; otherwise a noop tracer is used.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	l, _ := loader.New(loader.Config{Tracer: tracer.Tracer(), ...})
//
// # Propagation
//
// W3C Trace Context is extracted from requests to the serve command and
// injected into side-channel fetches, so a reload triggered by a traced
// request shows the fetches of every resource.
//
// # Sampling
//
// Three strategies are supported: always, never and ratio. All are
// parent based.
package tracing
