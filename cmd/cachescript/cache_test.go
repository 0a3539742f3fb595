package main

import (
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/storage"
	"mercator-hq/cachescript/pkg/storage/retention"
)

// populate runs one load so the store holds the cached modules.
func populate(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	srv, _ := newAssetServer(t)
	writeConfig(t, dir)
	site := writeManifest(t, dir, srv.URL)

	cmd, _ := testCommand()
	if err := runLoad(cmd, []string{site}); err != nil {
		t.Fatalf("runLoad() error = %v", err)
	}
	return dir
}

func listEntries(t *testing.T) []storage.Entry {
	t.Helper()
	cacheFlags.output = "json"
	defer func() { cacheFlags.output = "table" }()

	cmd, out := testCommand()
	if err := runCacheList(cmd, nil); err != nil {
		t.Fatalf("runCacheList() error = %v", err)
	}
	var entries []storage.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	return entries
}

func entryNames(entries []storage.Entry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return strings.Join(names, ",")
}

func TestCacheList(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)
	populate(t)

	// Linked modules are never stored.
	if got := entryNames(listEntries(t)); got != "app,base" {
		t.Errorf("cached blobs = %q, want app,base", got)
	}

	cmd, out := testCommand()
	if err := runCacheList(cmd, nil); err != nil {
		t.Fatalf("runCacheList() error = %v", err)
	}
	if !strings.Contains(out.String(), "2 blobs") {
		t.Errorf("table output missing count:\n%s", out.String())
	}
}

func TestCacheClear(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)
	populate(t)

	cmd, out := testCommand()
	if err := runCacheClear(cmd, []string{"base"}); err != nil {
		t.Fatalf("runCacheClear() error = %v", err)
	}
	if !strings.Contains(out.String(), "Deleted 1 blob") {
		t.Errorf("unexpected output: %s", out.String())
	}
	if got := entryNames(listEntries(t)); got != "app" {
		t.Errorf("cached blobs = %q, want app", got)
	}

	cacheFlags.all = true
	cmd, _ = testCommand()
	if err := runCacheClear(cmd, nil); err != nil {
		t.Fatalf("runCacheClear(--all) error = %v", err)
	}
	if got := listEntries(t); len(got) != 0 {
		t.Errorf("cached blobs after --all = %v, want none", got)
	}
}

func TestCacheClear_RequiresNames(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)

	cmd, _ := testCommand()
	err := runCacheClear(cmd, nil)
	if got := cli.ExitCode(err); got != cli.ExitConfig {
		t.Errorf("ExitCode(%v) = %d, want %d", err, got, cli.ExitConfig)
	}
}

func TestCachePrune(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)
	dir := populate(t)

	// Without manifests fresh blobs survive.
	cmd, out := testCommand()
	if err := runCachePrune(cmd, nil); err != nil {
		t.Fatalf("runCachePrune() error = %v", err)
	}
	if !strings.Contains(out.String(), "Pruned 0 blob(s), kept 2") {
		t.Errorf("unexpected output: %s", out.String())
	}

	// base is bumped and app is dropped.
	next := writeFile(t, dir, "next.yaml", `
modules:
  base:
    load:
      url: /js/base.js
      version: "2"
      cache: 2
`)
	cacheFlags.output = "json"
	cmd, out = testCommand()
	if err := runCachePrune(cmd, []string{next}); err != nil {
		t.Fatalf("runCachePrune() error = %v", err)
	}

	var report retention.Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	want := map[string]string{"base": retention.ReasonStale, "app": retention.ReasonUnknown}
	for name, reason := range want {
		if report.Removed[name] != reason {
			t.Errorf("Removed[%s] = %q, want %q", name, report.Removed[name], reason)
		}
	}
	if report.Kept != 0 {
		t.Errorf("Kept = %d, want 0", report.Kept)
	}
}
