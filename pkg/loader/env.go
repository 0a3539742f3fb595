package loader

import (
	"context"
	"time"

	"mercator-hq/cachescript/pkg/fetch"
	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/storage"
)

// Store is the blob store a session reads and writes.
type Store interface {
	Get(ctx context.Context, name string) (*storage.Blob, error)
	Set(ctx context.Context, name string, blob *storage.Blob) error
	Delete(ctx context.Context, name string) error
}

// Fetcher retrieves resource content over the side channel.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Response, error)
}

// Document receives loaded resources.
type Document interface {
	// InsertExecutable adds script content to the document.
	InsertExecutable(content string) error

	// InsertStyle adds stylesheet content to the document.
	InsertStyle(content string) error

	// Link adds a reference to url and returns once it has loaded.
	Link(ctx context.Context, kind manifest.Kind, url string) error
}

// Cache lookup results passed to Recorder.RecordCacheLookup.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale"
	LookupError = "error"
)

// Sources passed to Recorder.RecordFinished.
const (
	SourceCache   = "cache"
	SourceNetwork = "network"
	SourceLink    = "link"
)

// Session outcomes passed to Recorder.RecordSession.
const (
	OutcomeSuccess   = "success"
	OutcomeStalled   = "stalled"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// Recorder receives loader events for metrics.
type Recorder interface {
	RecordFetch(module string, status int, duration time.Duration, err error)
	RecordCacheLookup(module, result string)
	RecordFinished(module string, mode manifest.CacheMode, source string)
	RecordSession(outcome string, duration time.Duration, resources int)
	SessionStarted()
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(string, int, time.Duration, error)     {}
func (nopRecorder) RecordCacheLookup(string, string)                  {}
func (nopRecorder) RecordFinished(string, manifest.CacheMode, string) {}
func (nopRecorder) RecordSession(string, time.Duration, int)          {}
func (nopRecorder) SessionStarted()                                   {}
