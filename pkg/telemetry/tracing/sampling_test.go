package tracing

import (
	"strings"
	"testing"
)

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantErr  bool
		contains string
	}{
		{name: "always", strategy: SamplerAlways, contains: "AlwaysOnSampler"},
		{name: "never", strategy: SamplerNever, contains: "AlwaysOffSampler"},
		{name: "ratio", strategy: SamplerRatio, ratio: 0.25, contains: "TraceIDRatioBased{0.25}"},
		{name: "empty defaults to ratio", strategy: "", ratio: 0.5, contains: "TraceIDRatioBased{0.5}"},
		{name: "ratio too high", strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{name: "ratio negative", strategy: SamplerRatio, ratio: -0.1, wantErr: true},
		{name: "unknown", strategy: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := createSampler(tt.strategy, tt.ratio)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("createSampler(%q, %v) succeeded", tt.strategy, tt.ratio)
				}
				return
			}
			if err != nil {
				t.Fatalf("createSampler() error = %v", err)
			}
			desc := s.Description()
			if !strings.HasPrefix(desc, "ParentBased") {
				t.Errorf("Description() = %q, want ParentBased root", desc)
			}
			if !strings.Contains(desc, tt.contains) {
				t.Errorf("Description() = %q, want it to contain %q", desc, tt.contains)
			}
		})
	}
}
