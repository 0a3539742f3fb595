package manifest

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// CacheMode selects how a module is acquired and whether it is persisted.
type CacheMode int

const (
	// NoCache loads the module through the document's standard linking
	// mechanism and never touches the blob store.
	NoCache CacheMode = 0

	// CacheAndLoadTwice links the module normally and concurrently fetches
	// its content into the blob store for the next session.
	CacheAndLoadTwice CacheMode = 1

	// CacheThenInject fetches the module into the blob store first and then
	// injects the fetched content into the document.
	CacheThenInject CacheMode = 2
)

// String returns the mode name used in logs and metrics.
func (m CacheMode) String() string {
	switch m {
	case NoCache:
		return "no_cache"
	case CacheAndLoadTwice:
		return "cache_and_load_twice"
	case CacheThenInject:
		return "cache_then_inject"
	default:
		return fmt.Sprintf("cache_mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the known modes.
func (m CacheMode) Valid() bool {
	return m >= NoCache && m <= CacheThenInject
}

// Cached reports whether the mode reads and writes the blob store.
func (m CacheMode) Cached() bool {
	return m != NoCache
}

// Kind is the type of resource a module refers to.
type Kind string

const (
	// KindScript is an executable script.
	KindScript Kind = "script"
	// KindStyle is a stylesheet.
	KindStyle Kind = "style"
)

// ParseKind parses an explicit kind value.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "script", "js":
		return KindScript, nil
	case "style", "css", "stylesheet":
		return KindStyle, nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}

// InferKind derives the kind from the extension of the URL path. Query
// strings and fragments are ignored.
func InferKind(rawURL string) (Kind, error) {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".js", ".mjs":
		return KindScript, nil
	case ".css":
		return KindStyle, nil
	default:
		return "", fmt.Errorf("cannot infer kind from %q", rawURL)
	}
}

// Number is a numeric manifest value in its source spelling. Parsers keep
// numbers this way so a version written as 1.10 stays distinct from 1.1.
type Number string

// Module is a single resource entry of a manifest.
type Module struct {
	// Name is the key of the module in the modules collection.
	Name string `json:"name" yaml:"name"`

	// URL is the location the content is fetched or linked from.
	URL string `json:"url" yaml:"url"`

	// Version is an opaque tag compared for equality with the cached blob.
	Version string `json:"version" yaml:"version"`

	// Cache is the acquisition strategy.
	Cache CacheMode `json:"cache" yaml:"cache"`

	// After lists the modules that must be finished before this one starts.
	After []string `json:"after,omitempty" yaml:"after,omitempty"`

	// Kind is the resource type, explicit or inferred from URL.
	Kind Kind `json:"kind" yaml:"kind"`
}

// Manifest is the decoded, merged configuration of one loader session.
type Manifest struct {
	// Modules maps module names to their definitions.
	Modules map[string]Module `json:"modules" yaml:"modules"`

	// OnLoad is an opaque hook name carried through from the configuration.
	OnLoad string `json:"onLoad,omitempty" yaml:"onLoad,omitempty"`
}

// Names returns the module names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Modules))
	for name := range m.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Module returns the module with the given name.
func (m *Manifest) Module(name string) (Module, bool) {
	mod, ok := m.Modules[name]
	return mod, ok
}

// Versions returns the expected version of every cached module, keyed by
// name. NoCache modules are omitted since they never own a blob.
func (m *Manifest) Versions() map[string]string {
	out := make(map[string]string, len(m.Modules))
	for name, mod := range m.Modules {
		if mod.Cache.Cached() {
			out[name] = mod.Version
		}
	}
	return out
}
