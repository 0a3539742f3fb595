package main

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/loader"
	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/watch"
)

var watchFlags struct {
	output string
}

var watchCmd = &cobra.Command{
	Use:   "watch [manifest...]",
	Short: "Re-load whenever a manifest changes",
	Long: `Run a load session, then watch the manifest files and start a new
session after each change. A session still running when a change arrives is
cancelled. The stage report of every finished session is printed.

Examples:
  cachescript watch site.yaml defaults.yaml
  cachescript watch --output json`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.output, "output", "o", "table", "report output: text, json, table")
}

// reloader runs one session at a time, cancelling the previous one.
type reloader struct {
	a      *app
	paths  []string
	report func(*loader.Session)

	mu      sync.Mutex
	current *loader.Session
}

func (r *reloader) reload(ctx context.Context) error {
	raw, err := manifest.LoadFiles(r.paths...)
	if err != nil {
		return err
	}
	sess, err := r.a.loader.Load(ctx, raw, nil, loader.Options{
		Document: r.a.newDocument(),
		Timeout:  r.a.cfg.Loader.Timeout,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.current
	r.current = sess
	r.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	go func() {
		<-sess.Done()
		r.a.updateStoreSize(context.Background())
		r.report(sess)
	}()
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(watchFlags.output)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := manifestPaths(cfg, args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer a.Close()

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	var outMu sync.Mutex
	formatter := cli.NewFormatter(format)
	r := &reloader{a: a, paths: paths, report: func(s *loader.Session) {
		outMu.Lock()
		defer outMu.Unlock()
		if err := formatter.FormatTo(cmd.OutOrStdout(), s.Report()); err != nil {
			a.logger.Error("failed to print report", "error", err)
		}
	}}

	if err := r.reload(ctx); err != nil {
		a.logger.Error("initial load failed", "error", err)
	}

	w, err := watch.New(watch.Config{Paths: paths, Debounce: cfg.Loader.WatchDebounce}, a.logger.Slog())
	if err != nil {
		return err
	}
	defer w.Stop()
	return w.Watch(ctx, r.reload)
}
