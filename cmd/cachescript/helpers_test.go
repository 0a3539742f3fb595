package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

var assets = map[string]string{
	"/js/base.js":   "var base = 1;",
	"/js/app.js":    "var app = base + 1;",
	"/css/site.css": "body { margin: 0; }",
}

// hitCounter counts requests per path.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (c *hitCounter) get(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

// newAssetServer serves assets and counts requests per path.
func newAssetServer(t *testing.T) (*httptest.Server, *hitCounter) {
	t.Helper()
	hits := &hitCounter{hits: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := assets[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hits.mu.Lock()
		hits.hits[r.URL.Path]++
		hits.mu.Unlock()
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

// writeFile writes content to name under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// writeConfig writes a config using a SQLite store in dir and points
// --config at it.
func writeConfig(t *testing.T, dir string) {
	t.Helper()
	cfgFile = writeFile(t, dir, "cachescript.yaml", fmt.Sprintf(`
loader:
  timeout: 5s
fetch:
  max_retries: 0
  timeout: 2s
storage:
  backend: sqlite
  sqlite:
    path: %s
telemetry:
  logging:
    level: error
`, filepath.Join(dir, "db", "cache.db")))
}

// writeManifest writes a manifest whose modules load from baseURL.
func writeManifest(t *testing.T, dir, baseURL string) string {
	t.Helper()
	return writeFile(t, dir, "site.yaml", fmt.Sprintf(`
modules:
  base:
    load:
      url: %[1]s/js/base.js
      version: "1"
      cache: 2
  app:
    load:
      url: %[1]s/js/app.js
      version: "1"
      cache: 2
      after: [base]
  site:
    load:
      url: %[1]s/css/site.css
      version: "3"
      cache: 0
`, baseURL))
}

// resetFlags restores the package-level flag state between tests.
func resetFlags(t *testing.T) {
	t.Helper()
	cfgFile = ""
	verbose = false
	loadFlags.output = formatHTML
	loadFlags.timeout = 0
	loadFlags.document = ""
	loadFlags.progress = false
	validateFlags.output = "text"
	cacheFlags.output = "table"
	cacheFlags.all = false
}

// testCommand returns a command whose output is captured.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &out
}
