package loader

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/storage"
	"mercator-hq/cachescript/pkg/telemetry/tracing"
)

// acquire begins loading a resource that was just marked Started. It
// returns true if the resource finished synchronously from the cache.
func (s *Session) acquire(mod manifest.Module) bool {
	ctx, span := s.loader.tracer.Start(s.ctx, "loader.acquire", trace.WithAttributes(tracing.ModuleAttributes(mod)...))
	s.spans[mod.Name] = span

	if mod.Cache.Cached() {
		hit, err := s.fromCache(ctx, mod)
		if err != nil {
			s.failResource(mod, &FetchError{Module: mod.Name, URL: mod.URL, Op: "inject", Err: err})
			return false
		}
		if hit {
			return true
		}
	}

	s.acquireFresh(ctx, mod)
	return false
}

// fromCache serves mod from the blob store when the stored version matches.
// A stale blob is deleted so the fresh acquisition that follows is the only
// retry. The error is set only when a cached blob could not be injected.
func (s *Session) fromCache(ctx context.Context, mod manifest.Module) (bool, error) {
	blob, err := s.loader.store.Get(ctx, mod.Name)
	switch {
	case err != nil:
		s.logger.Warn("cache read failed, loading from network", "module", mod.Name, "error", err)
		s.loader.recorder.RecordCacheLookup(mod.Name, LookupError)
		return false, nil

	case blob == nil:
		s.loader.recorder.RecordCacheLookup(mod.Name, LookupMiss)
		return false, nil

	case blob.Version != mod.Version:
		s.logger.Info("cached version mismatch, invalidating",
			"module", mod.Name,
			"cached_version", blob.Version,
			"version", mod.Version,
		)
		s.loader.recorder.RecordCacheLookup(mod.Name, LookupStale)
		if err := s.loader.store.Delete(ctx, mod.Name); err != nil {
			s.logger.Warn("failed to delete stale blob", "module", mod.Name, "error", err)
		}
		return false, nil
	}

	s.loader.recorder.RecordCacheLookup(mod.Name, LookupHit)
	if err := s.inject(mod, blob.Content); err != nil {
		return false, err
	}
	s.refresh(ctx, mod.Name, blob)
	s.finishResource(mod, SourceCache)
	return true, nil
}

// refresh marks a blob served from the cache as used once it is older than
// the loader's refresh age. Stores without Touch get the blob rewritten.
func (s *Session) refresh(ctx context.Context, name string, blob *storage.Blob) {
	if s.loader.refresh < 0 || blob.UpdatedAt.IsZero() || s.loader.now().Sub(blob.UpdatedAt) < s.loader.refresh {
		return
	}

	var err error
	if t, ok := s.loader.store.(storage.Toucher); ok {
		err = t.Touch(ctx, name)
	} else {
		err = s.loader.store.Set(ctx, name, &storage.Blob{Content: blob.Content, Version: blob.Version})
	}
	if err != nil {
		s.logger.Warn("failed to refresh cached blob", "module", name, "error", err)
		return
	}
	s.logger.Debug("refreshed cached blob", "module", name, "age", s.loader.now().Sub(blob.UpdatedAt))
}

func (s *Session) acquireFresh(ctx context.Context, mod manifest.Module) {
	switch mod.Cache {
	case manifest.NoCache:
		s.pending[mod.Name] = 1
		s.startLink(ctx, mod)
	case manifest.CacheAndLoadTwice:
		s.pending[mod.Name] = 2
		s.startLink(ctx, mod)
		s.startFetch(ctx, mod)
	case manifest.CacheThenInject:
		s.pending[mod.Name] = 1
		s.startFetch(ctx, mod)
	}
}

func (s *Session) startLink(ctx context.Context, mod manifest.Module) {
	s.inflight++
	go func() {
		err := s.doc.Link(ctx, mod.Kind, mod.URL)
		s.post(event{kind: eventLinked, name: mod.Name, err: err})
	}()
}

func (s *Session) startFetch(ctx context.Context, mod manifest.Module) {
	s.inflight++
	go func() {
		start := time.Now()
		resp, err := s.loader.fetcher.Get(ctx, mod.URL)
		s.post(event{kind: eventFetched, name: mod.Name, resp: resp, err: err, duration: time.Since(start)})
	}()
}

// handle applies a completion event on the loop goroutine.
func (s *Session) handle(ev event) {
	mod, ok := s.registry.Module(ev.name)
	if !ok {
		return
	}

	switch ev.kind {
	case eventLinked:
		if ev.err != nil {
			s.failResource(mod, &FetchError{Module: mod.Name, URL: mod.URL, Op: "link", Err: ev.err})
			return
		}
		s.legDone(mod)

	case eventFetched:
		status := 0
		if ev.resp != nil {
			status = ev.resp.StatusCode
		}
		s.loader.recorder.RecordFetch(mod.Name, status, ev.duration, ev.err)

		if ev.err != nil {
			s.failResource(mod, &FetchError{Module: mod.Name, URL: mod.URL, Op: "fetch", Err: ev.err})
			return
		}
		if !ev.resp.OK() {
			s.failResource(mod, &FetchError{Module: mod.Name, URL: mod.URL, Op: "fetch", StatusCode: status})
			return
		}

		blob := &storage.Blob{Content: ev.resp.Body, Version: mod.Version}
		if err := s.loader.store.Set(s.ctx, mod.Name, blob); err != nil {
			s.logger.Warn("failed to cache resource", "module", mod.Name, "error", err)
		}

		if mod.Cache == manifest.CacheThenInject {
			if err := s.inject(mod, ev.resp.Body); err != nil {
				s.failResource(mod, &FetchError{Module: mod.Name, URL: mod.URL, Op: "inject", Err: err})
				return
			}
		}
		s.legDone(mod)
	}
}

// legDone counts down the outstanding work of mod and finishes it when
// nothing is left.
func (s *Session) legDone(mod manifest.Module) {
	s.pending[mod.Name]--
	if s.pending[mod.Name] > 0 {
		return
	}
	delete(s.pending, mod.Name)

	source := SourceLink
	if mod.Cache == manifest.CacheThenInject {
		source = SourceNetwork
	}
	s.finishResource(mod, source)
}

func (s *Session) inject(mod manifest.Module, content string) error {
	if mod.Kind == manifest.KindStyle {
		return s.doc.InsertStyle(content)
	}
	return s.doc.InsertExecutable(content)
}

func (s *Session) finishResource(mod manifest.Module, source string) {
	if !s.registry.MarkFinished(mod.Name) {
		return
	}

	s.mu.Lock()
	s.sources[mod.Name] = source
	s.mu.Unlock()

	if span, ok := s.spans[mod.Name]; ok {
		span.SetAttributes(tracing.SourceAttribute(source))
		span.SetStatus(codes.Ok, "")
		span.End()
		delete(s.spans, mod.Name)
	}

	s.loader.recorder.RecordFinished(mod.Name, mod.Cache, source)
	s.logger.Info("resource ready", "module", mod.Name, "source", source)
}

// failResource records a failure. The resource stays Started; the session
// reports it once nothing else can progress.
func (s *Session) failResource(mod manifest.Module, err *FetchError) {
	s.mu.Lock()
	if _, seen := s.failures[mod.Name]; !seen {
		s.failures[mod.Name] = err
	}
	s.mu.Unlock()

	if span, ok := s.spans[mod.Name]; ok {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Op)
	}

	s.logger.Warn("error loading url", "module", mod.Name, "url", mod.URL, "op", err.Op, "status", err.StatusCode, "error", err.Err)
}
