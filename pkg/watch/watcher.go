package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config configures a Watcher.
type Config struct {
	// Paths are manifest files or directories of manifests.
	Paths []string

	// Debounce is the quiet period after the last change before the
	// callback runs. Default: 250ms.
	Debounce time.Duration

	// Extensions selects files inside watched directories.
	// Default: .yaml, .yml, .json, .hcl.
	Extensions []string
}

// DefaultExtensions are the manifest formats the loader reads.
var DefaultExtensions = []string{".yaml", ".yml", ".json", ".hcl"}

// Watcher runs a callback when manifest files change. Rapid sequences of
// events, such as an editor's write-rename-chmod, cause one call.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   Config
	debounce *Debouncer

	// files are the watched regular files, dirs the watched directories.
	files map[string]bool
	dirs  map[string]bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped sync.Once
}

// New creates a watcher. Watching starts with Watch.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		logger:   logger.With("component", "watch"),
		config:   cfg,
		debounce: NewDebouncer(cfg.Debounce),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is done or Stop is called, running onChange after
// each debounced batch of changes. Errors from onChange are logged and do
// not stop the watcher.
func (w *Watcher) Watch(ctx context.Context, onChange func(ctx context.Context) error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()
	defer close(w.doneCh)

	for _, p := range w.config.Paths {
		if err := w.addPath(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	w.logger.Info("watching manifests",
		"paths", w.config.Paths,
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped", "reason", "context cancelled")
			return nil

		case <-w.stopCh:
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("manifest changed", "path", event.Name, "op", event.Op.String())
			w.debounce.Trigger(func() {
				w.logger.Info("reloading manifests", "path", event.Name)
				if err := onChange(ctx); err != nil {
					w.logger.Error("reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// Stop stops watching and releases the fsnotify watcher. Pending
// callbacks are cancelled.
func (w *Watcher) Stop() error {
	var err error
	w.stopped.Do(func() {
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()

		close(w.stopCh)
		if running {
			<-w.doneCh
		}
		w.debounce.Stop()
		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}

// addPath watches a directory directly. A file is watched through its
// parent directory so that editors replacing the file are noticed.
func (w *Watcher) addPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	dir := abs
	if info.IsDir() {
		w.dirs[abs] = true
	} else {
		w.files[abs] = true
		dir = filepath.Dir(abs)
	}
	return w.watcher.Add(dir)
}

// relevant reports whether event concerns a watched manifest.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if w.files[name] {
		return true
	}
	if !w.dirs[filepath.Dir(name)] {
		return false
	}
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range w.config.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
