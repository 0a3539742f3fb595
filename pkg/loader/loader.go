package loader

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/cachescript/pkg/document"
	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/storage"
	"mercator-hq/cachescript/pkg/telemetry/tracing"
)

// Config holds the capabilities shared by every session of a Loader.
type Config struct {
	// Store persists cached content. Default: in-memory store.
	Store Store

	// Fetcher performs side-channel fetches. Required.
	Fetcher Fetcher

	// Recorder receives metrics events. Optional.
	Recorder Recorder

	// Tracer creates session and acquisition spans. Optional.
	Tracer trace.Tracer

	// Logger is the base logger. Default: slog.Default().
	Logger *slog.Logger

	// RefreshAfter is the age after which a blob served from the cache has
	// its write time refreshed, so age-based retention only removes blobs
	// that are no longer used. Default: DefaultRefreshAfter. Negative
	// disables refreshing.
	RefreshAfter time.Duration
}

// DefaultRefreshAfter bounds refresh writes to one per blob per day.
const DefaultRefreshAfter = 24 * time.Hour

// Options configures a single session.
type Options struct {
	// Document receives the loaded resources. Default: an empty document.
	Document Document

	// OnLoad is called once, on the session goroutine, after every
	// resource has finished.
	OnLoad func()

	// OnFailure is called once if the session stalls, times out or is
	// cancelled. OnLoad and OnFailure are never both called.
	OnFailure func(error)

	// Timeout bounds the whole session. 0 means no limit.
	Timeout time.Duration
}

// Loader starts loading sessions. A Loader is safe for concurrent use and
// sessions started from it run independently.
type Loader struct {
	store    Store
	fetcher  Fetcher
	recorder Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
	refresh  time.Duration
	now      func() time.Time
	active   atomic.Int64
}

// New creates a Loader.
func New(cfg Config) (*Loader, error) {
	if cfg.Fetcher == nil {
		return nil, ErrNoFetcher
	}
	if cfg.Store == nil {
		cfg.Store = storage.NewMemoryStore()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("cachescript/loader")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RefreshAfter == 0 {
		cfg.RefreshAfter = DefaultRefreshAfter
	}

	return &Loader{
		store:    cfg.Store,
		fetcher:  cfg.Fetcher,
		recorder: cfg.Recorder,
		tracer:   cfg.Tracer,
		logger:   cfg.Logger.With("component", "loader"),
		refresh:  cfg.RefreshAfter,
		now:      time.Now,
	}, nil
}

// Load merges primary over secondary, validates the result and starts a
// session. Either configuration may be nil. Configuration and dependency
// errors are returned before anything is loaded.
func (l *Loader) Load(ctx context.Context, primary, secondary map[string]any, opts Options) (*Session, error) {
	raw := manifest.Merge(primary, secondary)
	m, err := manifest.Build(raw)
	if err != nil {
		return nil, err
	}
	return l.start(ctx, m, raw, opts)
}

// LoadManifest starts a session for an already decoded manifest.
func (l *Loader) LoadManifest(ctx context.Context, m *manifest.Manifest, opts Options) (*Session, error) {
	if err := manifest.Validate(m); err != nil {
		return nil, err
	}
	return l.start(ctx, m, nil, opts)
}

// Active returns the number of running sessions.
func (l *Loader) Active() int {
	return int(l.active.Load())
}

func (l *Loader) start(ctx context.Context, m *manifest.Manifest, raw map[string]any, opts Options) (*Session, error) {
	registry, err := NewRegistry(m)
	if err != nil {
		return nil, err
	}

	doc := opts.Document
	if doc == nil {
		doc = document.New("")
	}

	id := uuid.New().String()

	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeoutCause(ctx, opts.Timeout, ErrTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	ctx, span := l.tracer.Start(ctx, "loader.session", trace.WithAttributes(tracing.SessionAttributes(id, registry.Len())...))

	s := &Session{
		id:        id,
		loader:    l,
		raw:       raw,
		manifest:  m,
		registry:  registry,
		doc:       doc,
		onLoad:    opts.OnLoad,
		onFailure: opts.OnFailure,
		ctx:       ctx,
		cancel:    cancel,
		span:      span,
		events:    make(chan event, 2*registry.Len()+1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		pending:   make(map[string]int),
		sources:   make(map[string]string),
		failures:  make(map[string]error),
		spans:     make(map[string]trace.Span),
		started:   time.Now(),
		logger:    l.logger.With("session_id", id),
	}

	l.active.Add(1)
	l.recorder.SessionStarted()
	s.logger.Info("load session started", "resources", registry.Len())

	go s.run()
	return s, nil
}
