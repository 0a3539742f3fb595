package main

import (
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/cachescript/pkg/cli"
)

func TestValidate_Text(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)

	cmd, out := testCommand()
	if err := runValidate(cmd, []string{"testdata/overrides.hcl", "testdata/site.yaml"}); err != nil {
		t.Fatalf("runValidate() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"✓ 4 modules valid",
		"level 0: jquery, theme",
		"level 1: plugins",
		"level 2: app",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestValidate_JSON(t *testing.T) {
	resetFlags(t)
	validateFlags.output = "json"
	defer resetFlags(t)

	cmd, out := testCommand()
	if err := runValidate(cmd, []string{"testdata/site.yaml"}); err != nil {
		t.Fatalf("runValidate() error = %v", err)
	}

	var result validationResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if !result.Valid || result.Modules != 3 {
		t.Errorf("result = %+v, want valid with 3 modules", result)
	}
	if len(result.Levels) != 2 {
		t.Errorf("Levels = %v, want 2 levels", result.Levels)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		output   string
		wantCode int
	}{
		{name: "cycle", args: []string{"testdata/cycle.yaml"}, wantCode: cli.ExitConfig},
		{name: "unknown after", args: []string{"testdata/unknown-after.yaml"}, wantCode: cli.ExitConfig},
		{name: "no manifests", wantCode: cli.ExitConfig},
		{name: "bad output", args: []string{"testdata/site.yaml"}, output: "xml", wantCode: cli.ExitConfig},
		{name: "missing file", args: []string{"testdata/missing.yaml"}, wantCode: cli.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			if tt.output != "" {
				validateFlags.output = tt.output
			}
			defer resetFlags(t)

			cmd, _ := testCommand()
			err := runValidate(cmd, tt.args)
			if err == nil {
				t.Fatal("runValidate() should fail")
			}
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Errorf("ExitCode(%v) = %d, want %d", err, got, tt.wantCode)
			}
		})
	}
}
