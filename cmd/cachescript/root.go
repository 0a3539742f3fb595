package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cachescript",
	Short: "Dependency-ordered script and stylesheet loader with a versioned cache",
	Long: `Cachescript loads the scripts and stylesheets named in a manifest into a
document, starting each one as soon as the modules it comes after are in
place.

Each module picks a cache mode:
  0  link the URL directly, never cache
  1  link the URL and store a copy for next time
  2  inject the cached copy, fetching and storing it on a miss

A cached copy whose version differs from the manifest is discarded and
fetched again.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the application config named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// manifestPaths returns the positional arguments, or the manifests from the
// config when there are none.
func manifestPaths(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Loader.Manifests) > 0 {
		return cfg.Loader.Manifests, nil
	}
	return nil, cli.NewConfigError("loader.manifests", "no manifest files given")
}

// commandContext returns the context of cmd, which is unset when a command
// function is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
