package manifest

import (
	"errors"
	"reflect"
	"testing"
)

func graph(deps map[string][]string) *Manifest {
	m := &Manifest{Modules: map[string]Module{}}
	for name, after := range deps {
		m.Modules[name] = Module{Name: name, URL: "/" + name + ".js", Version: "1", After: after, Kind: KindScript}
	}
	return m
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		deps        map[string][]string
		wantMissing string
		wantCycle   []string
	}{
		{
			name: "acyclic",
			deps: map[string][]string{"A": nil, "B": {"A"}, "C": {"D", "B"}, "D": nil},
		},
		{
			name:        "missing reference",
			deps:        map[string][]string{"A": {"ghost"}},
			wantMissing: "ghost",
		},
		{
			name:      "self loop",
			deps:      map[string][]string{"A": {"A"}},
			wantCycle: []string{"A", "A"},
		},
		{
			name:      "three cycle",
			deps:      map[string][]string{"A": {"B"}, "B": {"C"}, "C": {"A"}, "D": nil},
			wantCycle: []string{"A", "B", "C", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(graph(tt.deps))
			if tt.wantMissing == "" && tt.wantCycle == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var depErr *DependencyError
			if !errors.As(err, &depErr) {
				t.Fatalf("expected *DependencyError, got %v", err)
			}
			if depErr.Missing != tt.wantMissing {
				t.Errorf("Missing = %q, want %q", depErr.Missing, tt.wantMissing)
			}
			if !reflect.DeepEqual(depErr.Cycle, tt.wantCycle) {
				t.Errorf("Cycle = %v, want %v", depErr.Cycle, tt.wantCycle)
			}
		})
	}
}

func TestValidate_NilManifest(t *testing.T) {
	var cfgErr *ConfigurationError
	if err := Validate(nil); !errors.As(err, &cfgErr) {
		t.Errorf("Validate(nil) = %v, want *ConfigurationError", err)
	}
}

func TestLevels(t *testing.T) {
	m := graph(map[string][]string{
		"script1": nil,
		"script2": nil,
		"script4": {"script1"},
		"script3": {"script4", "script2"},
		"style1":  nil,
	})

	got, err := Levels(m)
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	want := [][]string{
		{"script1", "script2", "style1"},
		{"script4"},
		{"script3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Levels() = %v, want %v", got, want)
	}
}
