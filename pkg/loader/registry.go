package loader

import (
	"sync"

	"mercator-hq/cachescript/pkg/manifest"
)

// Stage is the lifecycle position of a resource within one session.
// Stages only move forward.
type Stage int

const (
	// StageNeeded means the resource has not started loading.
	StageNeeded Stage = iota
	// StageStarted means acquisition is in progress.
	StageStarted
	// StageFinished means the resource is in the document.
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageNeeded:
		return "needed"
	case StageStarted:
		return "started"
	case StageFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Registry holds the modules of a session and their stages. Transitions
// are driven by the session loop; reads may come from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]manifest.Module
	stages  map[string]Stage
	names   []string
}

// NewRegistry creates a registry with every module at StageNeeded.
func NewRegistry(m *manifest.Manifest) (*Registry, error) {
	if m == nil || m.Modules == nil {
		return nil, &manifest.ConfigurationError{Field: "modules", Reason: "missing module collection"}
	}
	r := &Registry{
		modules: make(map[string]manifest.Module, len(m.Modules)),
		stages:  make(map[string]Stage, len(m.Modules)),
		names:   m.Names(),
	}
	for name, mod := range m.Modules {
		r.modules[name] = mod
		r.stages[name] = StageNeeded
	}
	return r, nil
}

// Names returns a copy of the module names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of modules.
func (r *Registry) Len() int {
	return len(r.names)
}

// Module returns the definition of name.
func (r *Registry) Module(name string) (manifest.Module, bool) {
	mod, ok := r.modules[name]
	return mod, ok
}

// Stage returns the stage of name. Unknown names report StageNeeded and
// false.
func (r *Registry) Stage(name string) (Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[name]
	return s, ok
}

// IsNeeded reports whether name has not started.
func (r *Registry) IsNeeded(name string) bool {
	s, ok := r.Stage(name)
	return ok && s == StageNeeded
}

// IsStarted reports whether name is loading.
func (r *Registry) IsStarted(name string) bool {
	s, ok := r.Stage(name)
	return ok && s == StageStarted
}

// IsFinished reports whether name is finished.
func (r *Registry) IsFinished(name string) bool {
	s, ok := r.Stage(name)
	return ok && s == StageFinished
}

// MarkStarted moves name from Needed to Started. It returns false if name
// is unknown or already past Needed.
func (r *Registry) MarkStarted(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stages[name]
	if !ok || s != StageNeeded {
		return false
	}
	r.stages[name] = StageStarted
	return true
}

// MarkFinished moves name to Finished. Marking a finished resource again
// is a no-op that returns false.
func (r *Registry) MarkFinished(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stages[name]
	if !ok || s == StageFinished {
		return false
	}
	r.stages[name] = StageFinished
	return true
}

// AllFinished reports whether every module is finished. An empty registry
// is trivially finished.
func (r *Registry) AllFinished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.stages {
		if s != StageFinished {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of all stages.
func (r *Registry) Snapshot() map[string]Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Stage, len(r.stages))
	for k, v := range r.stages {
		out[k] = v
	}
	return out
}

// Count returns the number of modules in each stage.
func (r *Registry) Count() map[Stage]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[Stage]int{}
	for _, s := range r.stages {
		out[s]++
	}
	return out
}
