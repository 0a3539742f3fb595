package manifest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decode converts a merged configuration map into a Manifest. The modules
// key must be present and hold a mapping; an empty mapping is valid.
// Dependency references are not checked here, see Validate.
func Decode(raw map[string]any) (*Manifest, error) {
	if raw == nil {
		return nil, &ConfigurationError{Field: "modules", Reason: "configuration is empty"}
	}

	rawModules, ok := raw["modules"]
	if !ok || rawModules == nil {
		return nil, &ConfigurationError{Field: "modules", Reason: "missing module collection"}
	}
	modules, ok := rawModules.(map[string]any)
	if !ok {
		return nil, &ConfigurationError{
			Field:  "modules",
			Reason: fmt.Sprintf("expected a mapping, got %T", rawModules),
		}
	}

	m := &Manifest{Modules: make(map[string]Module, len(modules))}
	for name, v := range modules {
		mod, err := decodeModule(name, v)
		if err != nil {
			return nil, err
		}
		m.Modules[name] = mod
	}

	if hook, ok := raw["onLoad"]; ok && hook != nil {
		s, ok := hook.(string)
		if !ok {
			return nil, &ConfigurationError{
				Field:  "onLoad",
				Reason: fmt.Sprintf("expected a string, got %T", hook),
			}
		}
		m.OnLoad = s
	}

	return m, nil
}

// Build decodes raw and validates the dependency graph.
func Build(raw map[string]any) (*Manifest, error) {
	m, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeModule(name string, v any) (Module, error) {
	if strings.TrimSpace(name) == "" {
		return Module{}, &ConfigurationError{Field: "modules", Reason: "module name must not be empty"}
	}
	entry, ok := v.(map[string]any)
	if !ok {
		return Module{}, &ConfigurationError{
			Module: name,
			Reason: fmt.Sprintf("expected a mapping, got %T", v),
		}
	}
	rawLoad, ok := entry["load"]
	if !ok {
		return Module{}, &ConfigurationError{Module: name, Field: "load", Reason: "missing"}
	}
	load, ok := rawLoad.(map[string]any)
	if !ok {
		return Module{}, &ConfigurationError{
			Module: name,
			Field:  "load",
			Reason: fmt.Sprintf("expected a mapping, got %T", rawLoad),
		}
	}

	mod := Module{Name: name}

	url, err := stringField(name, "url", load["url"])
	if err != nil {
		return Module{}, err
	}
	if url == "" {
		return Module{}, &ConfigurationError{Module: name, Field: "load.url", Reason: "required"}
	}
	mod.URL = url

	version, err := versionField(name, load["version"])
	if err != nil {
		return Module{}, err
	}
	mod.Version = version

	cache, err := cacheField(name, load["cache"])
	if err != nil {
		return Module{}, err
	}
	mod.Cache = cache

	after, err := listField(name, "load.after", load["after"])
	if err != nil {
		return Module{}, err
	}
	mod.After = after

	if rawKind, ok := load["kind"]; ok && rawKind != nil {
		s, err := stringField(name, "kind", rawKind)
		if err != nil {
			return Module{}, err
		}
		kind, err := ParseKind(s)
		if err != nil {
			return Module{}, &ConfigurationError{Module: name, Field: "load.kind", Reason: "invalid", Err: err}
		}
		mod.Kind = kind
	} else {
		kind, err := InferKind(url)
		if err != nil {
			return Module{}, &ConfigurationError{
				Module: name,
				Field:  "load.kind",
				Reason: "not set and not inferable from url",
				Err:    err,
			}
		}
		mod.Kind = kind
	}

	return mod, nil
}

func stringField(module, field string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	default:
		return "", &ConfigurationError{
			Module: module,
			Field:  "load." + field,
			Reason: fmt.Sprintf("expected a string, got %T", v),
		}
	}
}

// versionField accepts strings and numbers. YAML users tend to write
// `version: 2` and expect it to compare equal to "2".
func versionField(module string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", &ConfigurationError{Module: module, Field: "load.version", Reason: "required"}
	case string:
		if strings.TrimSpace(t) == "" {
			return "", &ConfigurationError{Module: module, Field: "load.version", Reason: "required"}
		}
		return t, nil
	case Number:
		return string(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", &ConfigurationError{
			Module: module,
			Field:  "load.version",
			Reason: fmt.Sprintf("expected a string or number, got %T", v),
		}
	}
}

func cacheField(module string, v any) (CacheMode, error) {
	var n int
	switch t := v.(type) {
	case nil:
		return NoCache, nil
	case int:
		n = t
	case int64:
		n = int(t)
	case uint64:
		n = int(t)
	case float64:
		if t != math.Trunc(t) {
			return 0, &ConfigurationError{Module: module, Field: "load.cache", Reason: fmt.Sprintf("not an integer: %v", t)}
		}
		n = int(t)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, &ConfigurationError{Module: module, Field: "load.cache", Reason: "not an integer", Err: err}
		}
		n = parsed
	case Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, &ConfigurationError{Module: module, Field: "load.cache", Reason: fmt.Sprintf("not an integer: %s", t), Err: err}
		}
		n = int(f)
	default:
		return 0, &ConfigurationError{
			Module: module,
			Field:  "load.cache",
			Reason: fmt.Sprintf("expected an integer, got %T", v),
		}
	}
	mode := CacheMode(n)
	if !mode.Valid() {
		return 0, &ConfigurationError{
			Module: module,
			Field:  "load.cache",
			Reason: fmt.Sprintf("unknown cache mode %d (want 0, 1 or 2)", n),
		}
	}
	return mode, nil
}

func listField(module, field string, v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, &ConfigurationError{
					Module: module,
					Field:  fmt.Sprintf("%s[%d]", field, i),
					Reason: fmt.Sprintf("expected a string, got %T", item),
				}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &ConfigurationError{
			Module: module,
			Field:  field,
			Reason: fmt.Sprintf("expected a list, got %T", v),
		}
	}
}
