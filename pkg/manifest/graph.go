package manifest

import "sort"

// Validate checks that every after reference names an existing module and
// that the dependency graph has no cycles. Modules are visited in sorted
// order so the reported error is deterministic.
func Validate(m *Manifest) error {
	if m == nil || m.Modules == nil {
		return &ConfigurationError{Field: "modules", Reason: "missing module collection"}
	}

	names := m.Names()
	for _, name := range names {
		for _, dep := range m.Modules[name].After {
			if _, ok := m.Modules[dep]; !ok {
				return &DependencyError{Module: name, Missing: dep}
			}
		}
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(names))
	var stack []string

	var visit func(string) []string
	visit = func(name string) []string {
		color[name] = grey
		stack = append(stack, name)
		for _, dep := range m.Modules[name].After {
			switch color[dep] {
			case grey:
				start := 0
				for i, n := range stack {
					if n == dep {
						start = i
						break
					}
				}
				cycle := append([]string(nil), stack[start:]...)
				return append(cycle, dep)
			case white:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for _, name := range names {
		if color[name] != white {
			continue
		}
		if cycle := visit(name); cycle != nil {
			return &DependencyError{Module: cycle[0], Cycle: cycle}
		}
	}
	return nil
}

// Levels groups modules into waves: every module in wave n depends only on
// modules of earlier waves. Names within a wave are sorted. The manifest
// must already be valid.
func Levels(m *Manifest) ([][]string, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	level := make(map[string]int, len(m.Modules))
	var depth func(string) int
	depth = func(name string) int {
		if d, ok := level[name]; ok {
			return d
		}
		d := 0
		for _, dep := range m.Modules[name].After {
			if dd := depth(dep) + 1; dd > d {
				d = dd
			}
		}
		level[name] = d
		return d
	}

	maxLevel := -1
	for name := range m.Modules {
		if d := depth(name); d > maxLevel {
			maxLevel = d
		}
	}

	waves := make([][]string, maxLevel+1)
	for name, d := range level {
		waves[d] = append(waves[d], name)
	}
	for _, w := range waves {
		sort.Strings(w)
	}
	return waves, nil
}
