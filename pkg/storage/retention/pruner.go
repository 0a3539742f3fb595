package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/storage"
)

// Reasons a blob is pruned.
const (
	ReasonExpired = "expired"
	ReasonUnknown = "unknown_module"
	ReasonStale   = "stale_version"
)

// Config contains configuration for the blob pruner.
type Config struct {
	// MaxAge removes blobs not rewritten within this period.
	// 0 disables age-based pruning.
	MaxAge time.Duration

	// Schedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	Schedule string

	// PruneUnknown removes blobs whose name is no longer in the manifest.
	PruneUnknown bool

	// PruneStale removes blobs whose version differs from the manifest.
	PruneStale bool
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAge:       30 * 24 * time.Hour,
		Schedule:     "0 3 * * *",
		PruneUnknown: true,
		PruneStale:   true,
	}
}

// ManifestFunc returns the manifest blobs are compared against.
// It may return nil when no manifest is loaded.
type ManifestFunc func() *manifest.Manifest

// Report lists the blobs removed by one pruning pass.
type Report struct {
	// Removed maps blob names to the reason they were removed.
	Removed map[string]string `json:"removed"`

	// Kept is the number of blobs left in the store.
	Kept int `json:"kept"`
}

// Names returns the removed blob names in sorted order.
func (r *Report) Names() []string {
	names := make([]string, 0, len(r.Removed))
	for n := range r.Removed {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Pruner removes blobs that can no longer be served: expired entries,
// entries for modules that were dropped from the manifest, and entries whose
// version no longer matches.
type Pruner struct {
	store    storage.Store
	config   *Config
	manifest ManifestFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewPruner creates a new blob pruner. manifestFn may be nil.
func NewPruner(store storage.Store, config *Config, manifestFn ManifestFunc) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if manifestFn == nil {
		manifestFn = func() *manifest.Manifest { return nil }
	}
	return &Pruner{
		store:    store,
		config:   config,
		manifest: manifestFn,
		logger:   slog.Default().With("component", "storage.retention"),
		now:      time.Now,
	}
}

// Config returns the pruner configuration.
func (p *Pruner) Config() *Config {
	return p.config
}

// Prune runs one pruning pass.
func (p *Pruner) Prune(ctx context.Context) (*Report, error) {
	entries, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	m := p.manifest()
	cutoff := time.Time{}
	if p.config.MaxAge > 0 {
		cutoff = p.now().Add(-p.config.MaxAge)
	}

	report := &Report{Removed: map[string]string{}}
	for _, e := range entries {
		reason := p.reason(e, m, cutoff)
		if reason == "" {
			report.Kept++
			continue
		}
		if err := p.store.Delete(ctx, e.Name); err != nil {
			return report, fmt.Errorf("failed to delete blob %q: %w", e.Name, err)
		}
		report.Removed[e.Name] = reason
		p.logger.Debug("pruned blob", "name", e.Name, "version", e.Version, "reason", reason)
	}

	if len(report.Removed) == 0 {
		p.logger.Debug("no blobs pruned", "kept", report.Kept)
	} else {
		p.logger.Info("blob pruning completed",
			"removed", len(report.Removed),
			"kept", report.Kept,
		)
	}
	return report, nil
}

func (p *Pruner) reason(e storage.Entry, m *manifest.Manifest, cutoff time.Time) string {
	if m != nil {
		mod, ok := m.Module(e.Name)
		if !ok || !mod.Cache.Cached() {
			if p.config.PruneUnknown {
				return ReasonUnknown
			}
		} else if p.config.PruneStale && mod.Version != e.Version {
			return ReasonStale
		}
	}
	if !cutoff.IsZero() && !e.UpdatedAt.IsZero() && e.UpdatedAt.Before(cutoff) {
		return ReasonExpired
	}
	return ""
}
