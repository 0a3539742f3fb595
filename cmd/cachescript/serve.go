package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/server"
	"mercator-hq/cachescript/pkg/storage/retention"
	"mercator-hq/cachescript/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
}

var serveCmd = &cobra.Command{
	Use:   "serve [manifest...]",
	Short: "Serve the loaded document over HTTP",
	Long: `Start an HTTP server that loads the manifests and serves the resulting
document. POST /reload or SIGHUP re-reads the manifests and starts a new
session. Blob retention runs on the configured cron schedule.

Examples:
  cachescript serve site.yaml defaults.yaml
  cachescript serve --config /etc/cachescript/config.yaml --listen 0.0.0.0:8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	paths, err := manifestPaths(cfg, args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer a.Close()

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("store", health.StoreCheck(a.store))

	srv := server.New(cfg, a.loader,
		func(context.Context) (map[string]any, error) { return manifest.LoadFiles(paths...) },
		server.WithChecker(checker),
		server.WithMetrics(a.collector.Handler()),
		server.WithDocumentFactory(a.newDocument),
		server.WithBuildInfo(Version, GitCommit, BuildDate),
		server.WithLogger(a.logger.Slog()),
	)

	if cfg.Storage.Retention.Enabled {
		sched := retention.NewScheduler(a.pruner(func() *manifest.Manifest {
			if s := srv.Latest(); s != nil {
				return s.Manifest()
			}
			return nil
		}))
		sched.OnReport(func(r *retention.Report) {
			a.collector.RecordPruned(r.Removed)
			a.updateStoreSize(ctx)
		})
		if err := sched.Start(ctx); err != nil {
			return cli.NewConfigError("storage.retention.schedule", err.Error())
		}
		defer sched.Stop()
	}

	reload, stopReload := cli.ReloadSignals()
	defer stopReload()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
				a.logger.Info("reload requested by signal")
				if _, err := srv.Reload(ctx); err != nil {
					a.logger.Error("reload failed", "error", err)
				}
			}
		}
	}()

	a.updateStoreSize(ctx)
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving %d manifest(s) on http://%s\n", len(paths), cfg.Server.ListenAddress)
	return srv.Start(ctx)
}
