package main

import (
	"context"
	"testing"
	"time"

	"mercator-hq/cachescript/pkg/loader"
)

func TestReloader_ReportsEachSession(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)

	dir := t.TempDir()
	srv, _ := newAssetServer(t)
	writeConfig(t, dir)
	site := writeManifest(t, dir, srv.URL)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	cmd, _ := testCommand()
	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	reports := make(chan *loader.Report, 2)
	r := &reloader{a: a, paths: []string{site}, report: func(s *loader.Session) {
		reports <- s.Report()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := r.reload(ctx); err != nil {
			t.Fatalf("reload() error = %v", err)
		}
		select {
		case rep := <-reports:
			if rep.Outcome != loader.OutcomeSuccess {
				t.Errorf("reload %d Outcome = %q, want success", i, rep.Outcome)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("reload %d never reported", i)
		}
	}
}

func TestReloader_BrokenManifest(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)

	writeConfig(t, t.TempDir())
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	cmd, _ := testCommand()
	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	r := &reloader{a: a, paths: []string{"testdata/cycle.yaml"}, report: func(*loader.Session) {
		t.Error("report called for a manifest that failed to load")
	}}
	if err := r.reload(context.Background()); err == nil {
		t.Fatal("reload() should fail on a dependency cycle")
	}
	if r.current != nil {
		t.Error("a failed reload must not replace the current session")
	}
}
