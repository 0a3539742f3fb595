package main

import (
	"errors"
	"strings"
	"testing"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/config"
)

func TestManifestPaths(t *testing.T) {
	tests := []struct {
		name       string
		configured []string
		args       []string
		want       []string
		wantErr    bool
	}{
		{
			name:       "arguments win",
			configured: []string{"defaults.yaml"},
			args:       []string{"site.yaml"},
			want:       []string{"site.yaml"},
		},
		{
			name:       "falls back to config",
			configured: []string{"site.yaml", "defaults.yaml"},
			want:       []string{"site.yaml", "defaults.yaml"},
		},
		{
			name:    "nothing given",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Loader.Manifests = tt.configured

			got, err := manifestPaths(cfg, tt.args)
			if tt.wantErr {
				var cfgErr *cli.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("manifestPaths() error = %v, want ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("manifestPaths() error = %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("manifestPaths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_Verbose(t *testing.T) {
	resetFlags(t)
	verbose = true
	defer resetFlags(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	resetFlags(t)
	cfgFile = "testdata/missing.yaml"
	defer resetFlags(t)

	if _, err := loadConfig(); err == nil {
		t.Fatal("loadConfig() should fail for a missing file")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd, out := testCommand()
	versionCmd.Run(cmd, nil)

	for _, want := range []string{"cachescript " + Version, "Git Commit:", "Go Version:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("version output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"load": false, "validate": false, "serve": false, "watch": false, "cache": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
