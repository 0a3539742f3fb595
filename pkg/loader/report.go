package loader

import (
	"errors"
	"time"

	"mercator-hq/cachescript/pkg/manifest"
)

// ResourceReport is the state of one resource in a Report.
type ResourceReport struct {
	Name    string             `json:"name"`
	URL     string             `json:"url"`
	Version string             `json:"version"`
	Kind    manifest.Kind      `json:"kind"`
	Cache   manifest.CacheMode `json:"cache"`
	After   []string           `json:"after,omitempty"`
	Stage   Stage              `json:"stage"`
	Source  string             `json:"source,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Report summarises a session for output and the report endpoint.
type Report struct {
	SessionID string           `json:"session_id"`
	Outcome   string           `json:"outcome"`
	Started   time.Time        `json:"started"`
	Duration  time.Duration    `json:"duration"`
	Error     string           `json:"error,omitempty"`
	Resources []ResourceReport `json:"resources"`
}

// Outcome returns the session outcome, "running" while the session is in
// progress.
func (s *Session) Outcome() string {
	select {
	case <-s.done:
	default:
		return "running"
	}

	err := s.Err()
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	default:
		var stall *StallError
		if errors.As(err, &stall) {
			return OutcomeStalled
		}
		return OutcomeCancelled
	}
}

// Report returns a snapshot of the session. It may be called while the
// session runs.
func (s *Session) Report() *Report {
	stages := s.registry.Snapshot()

	s.mu.Lock()
	r := &Report{
		SessionID: s.id,
		Started:   s.started,
	}
	if s.ended.IsZero() {
		r.Duration = time.Since(s.started)
	} else {
		r.Duration = s.ended.Sub(s.started)
	}
	if s.err != nil {
		r.Error = s.err.Error()
	}
	for _, name := range s.registry.Names() {
		mod, _ := s.registry.Module(name)
		rr := ResourceReport{
			Name:    name,
			URL:     mod.URL,
			Version: mod.Version,
			Kind:    mod.Kind,
			Cache:   mod.Cache,
			After:   mod.After,
			Stage:   stages[name],
			Source:  s.sources[name],
		}
		if err, ok := s.failures[name]; ok {
			rr.Error = err.Error()
		}
		r.Resources = append(r.Resources, rr)
	}
	s.mu.Unlock()

	r.Outcome = s.Outcome()
	return r
}
