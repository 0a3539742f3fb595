package manifest

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an absent or malformed part of a manifest.
type ConfigurationError struct {
	// Module is the module the problem belongs to, empty for top-level keys.
	Module string

	// Field is the offending key.
	Field string

	// Reason describes what is wrong.
	Reason string

	// Err is an underlying cause, if any.
	Err error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("manifest: ")
	if e.Module != "" {
		fmt.Fprintf(&b, "module %q: ", e.Module)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DependencyError reports a broken after reference or a dependency cycle.
type DependencyError struct {
	// Module declares the dependency.
	Module string

	// Missing is the referenced module that does not exist.
	Missing string

	// Cycle is the closed path of a detected cycle, first and last equal.
	Cycle []string
}

func (e *DependencyError) Error() string {
	if len(e.Cycle) > 0 {
		return "manifest: dependency cycle detected: " + strings.Join(e.Cycle, " -> ")
	}
	return fmt.Sprintf("manifest: module %q depends on unknown module %q", e.Module, e.Missing)
}

// IsCycle reports whether the error describes a cycle.
func (e *DependencyError) IsCycle() bool {
	return len(e.Cycle) > 0
}
