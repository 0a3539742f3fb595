package tracing

import (
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/cachescript/pkg/manifest"
)

// Attribute keys for loader spans.
const (
	AttrSessionID = "loader.session_id"
	AttrResources = "loader.resources"
	AttrModule    = "loader.module"
	AttrURL       = "loader.url"
	AttrVersion   = "loader.version"
	AttrCacheMode = "loader.cache_mode"
	AttrKind      = "loader.kind"
	AttrSource    = "loader.source"
	AttrStatus    = "http.response.status_code"
	AttrAttempts  = "loader.fetch.attempts"
)

// SessionAttributes describes a load session.
func SessionAttributes(id string, resources int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSessionID, id),
		attribute.Int(AttrResources, resources),
	}
}

// ModuleAttributes describes one resource.
func ModuleAttributes(mod manifest.Module) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrModule, mod.Name),
		attribute.String(AttrURL, mod.URL),
		attribute.String(AttrVersion, mod.Version),
		attribute.String(AttrCacheMode, mod.Cache.String()),
		attribute.String(AttrKind, string(mod.Kind)),
	}
}

// SourceAttribute records where a finished resource came from.
func SourceAttribute(source string) attribute.KeyValue {
	return attribute.String(AttrSource, source)
}

// FetchAttributes describes a completed side-channel fetch.
func FetchAttributes(status, attempts int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrStatus, status),
		attribute.Int(AttrAttempts, attempts),
	}
}
