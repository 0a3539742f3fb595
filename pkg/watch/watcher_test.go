package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// startWatcher runs w in the background and gives fsnotify time to
// register the watches.
func startWatcher(t *testing.T, w *Watcher, onChange func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Watch(ctx, onChange) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; err != nil {
			t.Errorf("Watch() error = %v", err)
		}
		_ = w.Stop()
	})
	time.Sleep(100 * time.Millisecond)
}

func waitCount(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if n.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("callback count = %d, want %d", n.Load(), want)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("New() with no paths succeeded")
	}

	w, err := New(Config{Paths: []string{t.TempDir()}}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	if w.config.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v, want 250ms", w.config.Debounce)
	}
	if len(w.config.Extensions) != len(DefaultExtensions) {
		t.Errorf("Extensions = %v", w.config.Extensions)
	}
}

func TestWatch_MissingPath(t *testing.T) {
	w, err := New(Config{Paths: []string{filepath.Join(t.TempDir(), "absent.yaml")}}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	if err := w.Watch(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Fatal("Watch() on a missing file succeeded")
	}
}

func TestWatch_FileChangeIsDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	writeFile(t, path, "modules: {}\n")

	w, err := New(Config{Paths: []string{path}, Debounce: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var calls atomic.Int32
	startWatcher(t, w, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		writeFile(t, path, "modules: {}\n# edit\n")
	}
	waitCount(t, &calls, 1)

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times for one burst, want 1", got)
	}
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	writeFile(t, path, "modules: {}\n")

	w, err := New(Config{Paths: []string{path}, Debounce: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var calls atomic.Int32
	startWatcher(t, w, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times for an unrelated file", got)
	}
}

func TestWatch_DirectoryAndCallbackErrors(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Config{Paths: []string{dir}, Debounce: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var calls atomic.Int32
	startWatcher(t, w, func(context.Context) error {
		calls.Add(1)
		return errors.New("broken manifest")
	})

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, ".hidden.yaml"), "ignored")
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("callback ran %d times for ignored files", got)
	}

	writeFile(t, filepath.Join(dir, "app.hcl"), "modules {}\n")
	waitCount(t, &calls, 1)

	// A failing callback does not stop the watcher.
	writeFile(t, filepath.Join(dir, "app.json"), "{}")
	waitCount(t, &calls, 2)
}

func TestWatch_AlreadyRunning(t *testing.T) {
	w, err := New(Config{Paths: []string{t.TempDir()}}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	startWatcher(t, w, func(context.Context) error { return nil })

	if err := w.Watch(context.Background(), nil); err == nil {
		t.Error("second Watch() succeeded")
	}
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "site.yaml")
	writeFile(t, file, "")
	sub := filepath.Join(dir, "conf")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := New(Config{Paths: []string{file, sub}}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	for _, p := range w.config.Paths {
		if err := w.addPath(p); err != nil {
			t.Fatalf("addPath(%s) error = %v", p, err)
		}
	}

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"watched file write", fsnotify.Event{Name: file, Op: fsnotify.Write}, true},
		{"watched file renamed over", fsnotify.Event{Name: file, Op: fsnotify.Create}, true},
		{"chmod only", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false},
		{"sibling of file", fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write}, false},
		{"manifest in dir", fsnotify.Event{Name: filepath.Join(sub, "a.yml"), Op: fsnotify.Write}, true},
		{"uppercase extension", fsnotify.Event{Name: filepath.Join(sub, "A.JSON"), Op: fsnotify.Write}, true},
		{"other extension", fsnotify.Event{Name: filepath.Join(sub, "a.txt"), Op: fsnotify.Write}, false},
		{"hidden", fsnotify.Event{Name: filepath.Join(sub, ".a.yaml"), Op: fsnotify.Write}, false},
		{"removed", fsnotify.Event{Name: filepath.Join(sub, "a.hcl"), Op: fsnotify.Remove}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.ev); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
			}
		})
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32

	for i := int32(1); i <= 3; i++ {
		i := i
		d.Trigger(func() {
			calls.Add(1)
			last.Store(i)
		})
	}
	waitCount(t, &calls, 1)
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 1 || last.Load() != 3 {
		t.Errorf("calls = %d last = %d, want 1 and 3", calls.Load(), last.Load())
	}

	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 1 {
		t.Error("callback ran after Stop")
	}
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 1 {
		t.Error("trigger after Stop ran")
	}
}
