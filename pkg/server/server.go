package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/cachescript/pkg/config"
	"mercator-hq/cachescript/pkg/document"
	"mercator-hq/cachescript/pkg/loader"
	"mercator-hq/cachescript/pkg/telemetry/health"
	"mercator-hq/cachescript/pkg/telemetry/tracing"
)

// ManifestSource returns the configuration for the next load session.
type ManifestSource func(ctx context.Context) (map[string]any, error)

// Server serves the document built by the most recent load session.
type Server struct {
	config      *config.Config
	loader      *loader.Loader
	source      ManifestSource
	newDocument func() *document.Head
	checker     *health.Checker
	metrics     http.Handler
	build       health.VersionInfo
	logger      *slog.Logger

	httpServer *http.Server
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.RWMutex
	isRunning bool
	current   *loaded
}

// loaded pairs a session with the document it writes to.
type loaded struct {
	session *loader.Session
	doc     *document.Head
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h on the configured metrics path.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithChecker replaces the health checker. The session check is always
// registered on it.
func WithChecker(c *health.Checker) Option {
	return func(s *Server) { s.checker = c }
}

// WithDocumentFactory sets how the document of each session is created.
func WithDocumentFactory(fn func() *document.Head) Option {
	return func(s *Server) { s.newDocument = fn }
}

// WithBuildInfo sets the values served on the version path.
func WithBuildInfo(version, commit, buildTime string) Option {
	return func(s *Server) {
		s.build = health.VersionInfo{Version: version, Commit: commit, BuildTime: buildTime}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server. Nothing is loaded until Reload or Start.
func New(cfg *config.Config, l *loader.Loader, source ManifestSource, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:     cfg,
		loader:     l,
		source:     source,
		logger:     slog.Default(),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newDocument == nil {
		title := cfg.Document.Title
		s.newDocument = func() *document.Head { return document.New(title) }
	}
	if s.checker == nil {
		s.checker = health.New(cfg.Telemetry.Health.CheckTimeout)
	}
	s.checker.RegisterCheck("session", health.SessionCheck(s.Latest))
	s.logger = s.logger.With("component", "server")
	return s
}

// Latest returns the most recent session, nil before the first reload.
func (s *Server) Latest() *loader.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current.session
}

func (s *Server) latest() *loaded {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload reads the manifests and starts a new session. The previous
// session is cancelled once the new one has started. Configuration
// errors leave the previous session in place.
func (s *Server) Reload(ctx context.Context) (*loader.Session, error) {
	raw, err := s.source(ctx)
	if err != nil {
		return nil, err
	}

	// The session outlives the request but joins its trace.
	sessCtx := trace.ContextWithRemoteSpanContext(s.baseCtx, trace.SpanContextFromContext(ctx))

	doc := s.newDocument()
	sess, err := s.loader.Load(sessCtx, raw, nil, loader.Options{
		Document: doc,
		Timeout:  s.config.Loader.Timeout,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.current
	s.current = &loaded{session: sess, doc: doc}
	s.mu.Unlock()

	if prev != nil {
		prev.session.Cancel()
	}
	s.logger.InfoContext(ctx, "load session started", "session_id", sess.ID(), "resources", sess.Registry().Len())
	return sess, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(tracing.HTTPMiddleware)

	r.Get("/", s.handleDocument)
	r.Get("/report", s.handleReport)
	r.Post("/reload", s.handleReload)

	hc := s.config.Telemetry.Health
	if hc.Enabled {
		r.Get(hc.LivenessPath, s.checker.LivenessHandler())
		r.Get(hc.ReadinessPath, s.checker.ReadinessHandler())
		r.Get(hc.VersionPath, health.VersionHandler(s.build.Version, s.build.Commit, s.build.BuildTime))
	}
	if s.metrics != nil && s.config.Telemetry.Metrics.Enabled {
		r.Handle(s.config.Telemetry.Metrics.Path, s.metrics)
	}
	return r
}

// Start loads the manifests, serves until ctx is done and then shuts
// down. A failed initial load is logged; the server still starts so that
// /reload can recover.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	if _, err := s.Reload(ctx); err != nil {
		s.logger.Error("initial load failed", "error", err)
	}

	sc := s.config.Server
	s.httpServer = &http.Server{
		Addr:         sc.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return s.baseCtx },
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", sc.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.baseCancel()
		return err
	}
}

// Shutdown stops the HTTP server and cancels the running session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	running := s.isRunning
	s.isRunning = false
	s.mu.Unlock()
	defer s.baseCancel()

	if !running || s.httpServer == nil {
		return nil
	}

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
