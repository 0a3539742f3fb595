package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// SessionKey is the context key for load session identifiers.
	SessionKey contextKey = "session_id"

	// ResourceKey is the context key for resource names.
	ResourceKey contextKey = "module"

	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"
)

// WithSession adds a session identifier to the context.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// GetSession retrieves the session identifier from the context.
func GetSession(ctx context.Context) string {
	if session, ok := ctx.Value(SessionKey).(string); ok {
		return session
	}
	return ""
}

// WithResource adds a resource name to the context.
func WithResource(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ResourceKey, name)
}

// GetResource retrieves the resource name from the context.
func GetResource(ctx context.Context) string {
	if name, ok := ctx.Value(ResourceKey).(string); ok {
		return name
	}
	return ""
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// extractContextFields extracts common fields from context for logging,
// including the trace and span IDs of a recording span.
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if session := GetSession(ctx); session != "" {
		fields = append(fields, "session_id", session)
	}
	if name := GetResource(ctx); name != "" {
		fields = append(fields, "module", name)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}

	return fields
}
