package loader

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/cachescript/pkg/fetch"
	"mercator-hq/cachescript/pkg/manifest"
)

type eventKind int

const (
	eventLinked eventKind = iota
	eventFetched
)

// event is posted to the session loop when asynchronous work completes.
type event struct {
	kind     eventKind
	name     string
	resp     *fetch.Response
	err      error
	duration time.Duration
}

// Session is one run of the loader over a merged manifest. A single
// goroutine owns scheduling: it runs tick after every completion event and
// exits once all resources are finished or no progress is possible.
type Session struct {
	id        string
	loader    *Loader
	raw       map[string]any
	manifest  *manifest.Manifest
	registry  *Registry
	doc       Document
	onLoad    func()
	onFailure func(error)

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span
	logger *slog.Logger

	events chan event
	stop   chan struct{}
	done   chan struct{}

	// owned by the loop goroutine
	inflight  int
	completed bool
	pending   map[string]int
	spans     map[string]trace.Span

	mu       sync.Mutex
	sources  map[string]string
	failures map[string]error
	err      error
	started  time.Time
	ended    time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Manifest returns the decoded manifest of the session.
func (s *Session) Manifest() *manifest.Manifest {
	return s.manifest
}

// Config returns the merged configuration the session was started with.
// Sessions started from a decoded manifest return nil.
func (s *Session) Config() map[string]any {
	return s.raw
}

// Registry returns the session's resource registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Stage returns the current stage of a resource.
func (s *Session) Stage(name string) Stage {
	st, _ := s.registry.Stage(name)
	return st
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the session failure once Done is closed, nil on success or
// while the session is running.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the session ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the session. Resources in flight are abandoned.
func (s *Session) Cancel() {
	s.cancel()
}

func (s *Session) run() {
	defer close(s.done)
	defer close(s.stop)
	defer s.cancel()
	defer s.loader.active.Add(-1)

	s.tick()
	for !s.completed {
		if s.inflight == 0 {
			// Work cut short by cancellation is not a stall.
			if s.ctx.Err() != nil {
				s.fail(s.cause())
				return
			}
			s.fail(s.stallError())
			return
		}

		select {
		case ev := <-s.events:
			s.inflight--
			s.handle(ev)
			s.tick()
		case <-s.ctx.Done():
			s.fail(s.cause())
			return
		}
	}
}

// cause is the error a session ends with once its context is done.
func (s *Session) cause() error {
	cause := context.Cause(s.ctx)
	if !errors.Is(cause, ErrTimeout) {
		cause = s.ctx.Err()
	}
	return cause
}

// tick starts every needed resource whose prerequisites are finished and
// fires the completion callback once everything is finished. Resources are
// visited in name order. A pass that finishes a resource synchronously is
// followed by another pass so dependants start without waiting for an
// unrelated event.
func (s *Session) tick() {
	for {
		progressed := false
		for _, name := range s.registry.Names() {
			if !s.registry.IsNeeded(name) {
				continue
			}
			mod, _ := s.registry.Module(name)
			if dep := s.unfinished(mod.After); dep != "" {
				s.logger.Debug("waiting for prerequisite", "module", name, "after", dep)
				continue
			}
			if !s.registry.MarkStarted(name) {
				continue
			}
			s.logger.Debug("load started", "module", name, "url", mod.URL, "cache", mod.Cache.String())
			if s.acquire(mod) {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	if !s.completed && s.registry.AllFinished() {
		s.complete()
	}
}

func (s *Session) unfinished(after []string) string {
	for _, dep := range after {
		if !s.registry.IsFinished(dep) {
			return dep
		}
	}
	return ""
}

func (s *Session) complete() {
	s.completed = true
	duration := s.finish(nil)

	s.logger.Info("all resources loaded", "resources", s.registry.Len(), "duration", duration)
	s.loader.recorder.RecordSession(OutcomeSuccess, duration, s.registry.Len())
	s.span.SetStatus(codes.Ok, "")
	s.span.End()

	if s.onLoad != nil {
		s.onLoad()
	}
}

func (s *Session) fail(err error) {
	duration := s.finish(err)

	outcome := OutcomeStalled
	switch {
	case errors.Is(err, ErrTimeout):
		outcome = OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeCancelled
	}

	s.logger.Warn("load session failed", "outcome", outcome, "error", err, "duration", duration)
	s.loader.recorder.RecordSession(outcome, duration, s.registry.Len())

	for name, span := range s.spans {
		span.SetStatus(codes.Error, outcome)
		span.End()
		delete(s.spans, name)
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, outcome)
	s.span.End()

	if s.onFailure != nil {
		s.onFailure(err)
	}
}

func (s *Session) finish(err error) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.ended = time.Now()
	return s.ended.Sub(s.started)
}

func (s *Session) stallError() *StallError {
	s.mu.Lock()
	failed := make(map[string]error, len(s.failures))
	for k, v := range s.failures {
		failed[k] = v
	}
	s.mu.Unlock()

	var blocked []string
	for _, name := range s.registry.Names() {
		if s.registry.IsNeeded(name) {
			blocked = append(blocked, name)
		}
	}
	sort.Strings(blocked)
	return &StallError{Failed: failed, Blocked: blocked}
}

// post delivers ev to the loop unless the loop has exited.
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.stop:
	}
}
