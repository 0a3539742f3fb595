package main

import (
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/loader"
)

func TestLoad_RendersDocument(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)

	dir := t.TempDir()
	srv, _ := newAssetServer(t)
	writeConfig(t, dir)
	site := writeManifest(t, dir, srv.URL)

	cmd, out := testCommand()
	if err := runLoad(cmd, []string{site}); err != nil {
		t.Fatalf("runLoad() error = %v", err)
	}

	got := out.String()
	base := strings.Index(got, assets["/js/base.js"])
	app := strings.Index(got, assets["/js/app.js"])
	if base < 0 || app < 0 {
		t.Fatalf("scripts not injected:\n%s", got)
	}
	if base > app {
		t.Errorf("app injected before base:\n%s", got)
	}
	if !strings.Contains(got, `href="`+srv.URL+`/css/site.css"`) {
		t.Errorf("stylesheet not linked:\n%s", got)
	}
}

func TestLoad_SecondRunServesFromCache(t *testing.T) {
	resetFlags(t)
	loadFlags.output = "json"
	defer resetFlags(t)

	dir := t.TempDir()
	srv, hits := newAssetServer(t)
	writeConfig(t, dir)
	site := writeManifest(t, dir, srv.URL)

	run := func() *loader.Report {
		t.Helper()
		cmd, out := testCommand()
		if err := runLoad(cmd, []string{site}); err != nil {
			t.Fatalf("runLoad() error = %v", err)
		}
		var report loader.Report
		if err := json.Unmarshal(out.Bytes(), &report); err != nil {
			t.Fatalf("output is not a report: %v\n%s", err, out.String())
		}
		return &report
	}

	first := run()
	if first.Outcome != loader.OutcomeSuccess {
		t.Fatalf("first Outcome = %q, want success", first.Outcome)
	}
	second := run()

	sources := map[string]string{}
	for _, r := range second.Resources {
		sources[r.Name] = r.Source
	}
	want := map[string]string{"base": loader.SourceCache, "app": loader.SourceCache, "site": loader.SourceLink}
	for name, source := range want {
		if sources[name] != source {
			t.Errorf("second run source of %s = %q, want %q", name, sources[name], source)
		}
	}
	if n := hits.get("/js/base.js"); n != 1 {
		t.Errorf("base.js fetched %d times, want 1", n)
	}
}

func TestLoad_MissingResourceFails(t *testing.T) {
	resetFlags(t)
	loadFlags.output = "text"
	defer resetFlags(t)

	dir := t.TempDir()
	srv, _ := newAssetServer(t)
	writeConfig(t, dir)
	site := writeFile(t, dir, "broken.yaml", `
modules:
  gone:
    load:
      url: `+srv.URL+`/js/gone.js
      version: "1"
      cache: 2
  dependant:
    load:
      url: `+srv.URL+`/js/app.js
      version: "1"
      cache: 2
      after: [gone]
`)

	cmd, out := testCommand()
	err := runLoad(cmd, []string{site})
	if err == nil {
		t.Fatal("runLoad() should fail when a module cannot be fetched")
	}
	if got := cli.ExitCode(err); got != cli.ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", got, cli.ExitFailure)
	}
	if !strings.Contains(out.String(), loader.OutcomeStalled) {
		t.Errorf("report does not mention the stall:\n%s", out.String())
	}
}

func TestLoad_IntoExistingDocument(t *testing.T) {
	resetFlags(t)
	defer resetFlags(t)

	dir := t.TempDir()
	srv, _ := newAssetServer(t)
	writeConfig(t, dir)
	site := writeManifest(t, dir, srv.URL)
	loadFlags.document = writeFile(t, dir, "index.html",
		`<html><head><title>Shop</title></head><body><p>catalogue</p></body></html>`)

	cmd, out := testCommand()
	if err := runLoad(cmd, []string{site}); err != nil {
		t.Fatalf("runLoad() error = %v", err)
	}
	for _, want := range []string{"<title>Shop</title>", "catalogue", assets["/js/app.js"]} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("document missing %q:\n%s", want, out.String())
		}
	}
}

func TestLoad_BadOutput(t *testing.T) {
	resetFlags(t)
	loadFlags.output = "yaml"
	defer resetFlags(t)

	cmd, _ := testCommand()
	err := runLoad(cmd, []string{"testdata/site.yaml"})
	if got := cli.ExitCode(err); got != cli.ExitConfig {
		t.Errorf("ExitCode(%v) = %d, want %d", err, got, cli.ExitConfig)
	}
}
