package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/cachescript/pkg/config"
	"mercator-hq/cachescript/pkg/manifest"
)

func newTestTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tr, err := NewWithExporter(&config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		ServiceName: "test",
	}, "1.0.0", exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	return tr, exporter
}

func TestNew_Disabled(t *testing.T) {
	tr, err := New(&config.TracingConfig{Enabled: false}, "dev")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tr.Enabled() {
		t.Error("Enabled() = true, want false")
	}

	_, span := tr.Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("noop tracer produced a valid span context")
	}
	span.End()

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "dev"); err == nil {
		t.Fatal("New(nil) succeeded")
	}
}

func TestNew_OTLPExporterIsLazy(t *testing.T) {
	// The gRPC connection is not dialled until the first export.
	tr, err := New(&config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerNever,
		Endpoint:    "127.0.0.1:1",
		ServiceName: "test",
		OTLP:        config.OTLPConfig{Insecure: true},
	}, "dev")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !tr.Enabled() {
		t.Error("Enabled() = false, want true")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tr.Shutdown(ctx)
}

func TestNewWithExporter_InvalidSampler(t *testing.T) {
	_, err := NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: "sometimes"}, "dev", tracetest.NewInMemoryExporter())
	if err == nil {
		t.Fatal("expected error for unknown sampler")
	}
}

func TestTracer_RecordsSpans(t *testing.T) {
	tr, exporter := newTestTracer(t)

	mod := manifest.Module{Name: "jq", URL: "https://cdn.example/jq.js", Version: "3", Cache: manifest.CacheThenInject, Kind: manifest.KindScript}
	ctx, parent := tr.Tracer().Start(context.Background(), "loader.session")
	parent.SetAttributes(SessionAttributes("s1", 1)...)
	_, child := tr.Start(ctx, "loader.acquire")
	child.SetAttributes(ModuleAttributes(mod)...)
	child.SetAttributes(SourceAttribute("cache"))
	SetStatus(child, nil)
	child.End()
	SetStatus(parent, errors.New("stalled"))
	parent.End()

	if err := tr.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}

	acquire, session := spans[0], spans[1]
	if acquire.Name != "loader.acquire" || session.Name != "loader.session" {
		t.Fatalf("span names = %q, %q", acquire.Name, session.Name)
	}
	if acquire.Parent.SpanID() != session.SpanContext.SpanID() {
		t.Error("acquire span is not a child of the session span")
	}
	if acquire.Status.Code != codes.Ok {
		t.Errorf("acquire status = %v, want Ok", acquire.Status.Code)
	}
	if session.Status.Code != codes.Error {
		t.Errorf("session status = %v, want Error", session.Status.Code)
	}

	attrs := map[string]string{}
	for _, kv := range acquire.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	want := map[string]string{
		AttrModule:    "jq",
		AttrVersion:   "3",
		AttrCacheMode: "cache_then_inject",
		AttrKind:      "script",
		AttrSource:    "cache",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestTraceID(t *testing.T) {
	if id := TraceID(context.Background()); id != "" {
		t.Errorf("TraceID(background) = %q, want empty", id)
	}

	tr, _ := newTestTracer(t)
	ctx, span := tr.Start(context.Background(), "op")
	defer span.End()
	if id := TraceID(ctx); len(id) != 32 {
		t.Errorf("TraceID() = %q, want 32 hex chars", id)
	}
}

func TestPropagation_RoundTrip(t *testing.T) {
	tr, _ := newTestTracer(t)
	ctx, span := tr.Start(context.Background(), "client")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("Inject() did not set traceparent")
	}

	extracted := Extract(context.Background(), headers)
	if got, want := TraceID(extracted), TraceID(ctx); got != want {
		t.Errorf("extracted trace ID = %q, want %q", got, want)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	tr, _ := newTestTracer(t)
	ctx, span := tr.Start(context.Background(), "client")
	defer span.End()

	var seen string
	h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	Inject(ctx, req.Header)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != TraceID(ctx) {
		t.Errorf("handler trace ID = %q, want %q", seen, TraceID(ctx))
	}
	if got := rec.Header().Get("X-Trace-ID"); got != TraceID(ctx) {
		t.Errorf("X-Trace-ID = %q, want %q", got, TraceID(ctx))
	}
}
