package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cachescript/pkg/config"
	"mercator-hq/cachescript/pkg/document"
	"mercator-hq/cachescript/pkg/fetch"
	"mercator-hq/cachescript/pkg/loader"
	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/storage"
	"mercator-hq/cachescript/pkg/storage/retention"
	"mercator-hq/cachescript/pkg/telemetry/logging"
	"mercator-hq/cachescript/pkg/telemetry/metrics"
	"mercator-hq/cachescript/pkg/telemetry/tracing"
)

// app holds the components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	store     storage.Store
	fetcher   *fetch.HTTPFetcher
	collector *metrics.Collector
	tracer    *tracing.Tracer
	loader    *loader.Loader
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	lc := cfg.Telemetry.Logging
	logger, err := logging.New(logging.Config{
		Level:        lc.Level,
		Format:       lc.Format,
		AddSource:    lc.AddSource,
		RedactURLs:   lc.RedactURLs,
		RedactParams: lc.RedactParams,
		Writer:       w,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.Slog())
	return logger, nil
}

// openStore opens the configured blob store, creating the SQLite
// directory if needed.
func openStore(cfg *config.Config) (storage.Store, error) {
	sc := cfg.Storage
	if sc.Backend == storage.BackendSQLite {
		if dir := filepath.Dir(sc.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	store, err := storage.Open(storage.Options{
		Backend: sc.Backend,
		SQLite: storage.SQLiteConfig{
			Path:               sc.SQLite.Path,
			Driver:             sc.SQLite.Driver,
			BusyTimeout:        sc.SQLite.BusyTimeout,
			CheckpointInterval: sc.SQLite.CheckpointInterval,
		},
		S3: storage.S3Config{
			Bucket:       sc.S3.Bucket,
			Prefix:       sc.S3.Prefix,
			Region:       sc.S3.Region,
			Endpoint:     sc.S3.Endpoint,
			UsePathStyle: sc.S3.UsePathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", sc.Backend, err)
	}
	return store, nil
}

func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	fc := cfg.Fetch
	fetcher, err := fetch.New(fetch.Config{
		BaseURL:      fc.BaseURL,
		Timeout:      fc.Timeout,
		MaxRetries:   fc.MaxRetries,
		Backoff:      fc.Backoff,
		MaxBodyBytes: fc.MaxBodyBytes,
		UserAgent:    fc.UserAgent,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	l, err := loader.New(loader.Config{
		Store:    store,
		Fetcher:  fetcher,
		Recorder: collector,
		Tracer:   tracer.Tracer(),
		Logger:   logger.Slog(),
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		fetcher:   fetcher,
		collector: collector,
		tracer:    tracer,
		loader:    l,
	}, nil
}

// newDocument creates the document a session loads into. Linked
// resources are probed through the fetcher when configured.
func (a *app) newDocument() *document.Head {
	var opts []document.Option
	if a.cfg.Document.ProbeLinks {
		opts = append(opts, document.WithProber(a.fetcher))
	}
	return document.New(a.cfg.Document.Title, opts...)
}

// parseDocument reads an existing page to load into.
func (a *app) parseDocument(path string) (*document.Head, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var opts []document.Option
	if a.cfg.Document.ProbeLinks {
		opts = append(opts, document.WithProber(a.fetcher))
	}
	return document.Parse(f, opts...)
}

// pruner creates a retention pruner comparing blobs with m.
func (a *app) pruner(m func() *manifest.Manifest) *retention.Pruner {
	rc := a.cfg.Storage.Retention
	return retention.NewPruner(a.store, &retention.Config{
		MaxAge:       rc.MaxAge,
		Schedule:     rc.Schedule,
		PruneUnknown: rc.PruneUnknown,
		PruneStale:   rc.PruneStale,
	}, m)
}

// updateStoreSize refreshes the store gauges.
func (a *app) updateStoreSize(ctx context.Context) {
	entries, err := a.store.List(ctx)
	if err != nil {
		a.logger.Warn("failed to list blobs", "error", err)
		return
	}
	var size int64
	for _, e := range entries {
		size += e.Size
	}
	a.collector.UpdateStoreSize(len(entries), size)
}

func (a *app) Close() error {
	timeout := a.cfg.Telemetry.Tracing.OTLP.Timeout
	if timeout <= 0 {
		timeout = config.DefaultOTLPTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return errors.Join(
		a.tracer.Shutdown(ctx),
		a.fetcher.Close(),
		a.store.Close(),
	)
}
