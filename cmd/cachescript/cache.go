package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/manifest"
)

var cacheFlags struct {
	output string
	all    bool
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the blob cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached blobs",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [name...]",
	Short: "Delete cached blobs",
	Long: `Delete the named blobs, or every blob with --all. The next load of a
deleted module fetches it again.`,
	RunE: runCacheClear,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune [manifest...]",
	Short: "Apply the retention policy once",
	Long: `Remove blobs older than storage.retention.max_age, blobs of modules the
manifests no longer name, and blobs whose version differs from the
manifests.`,
	RunE: runCachePrune,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd, cachePruneCmd)

	cacheCmd.PersistentFlags().StringVarP(&cacheFlags.output, "output", "o", "table", "output: text, json, table")
	cacheClearCmd.Flags().BoolVar(&cacheFlags.all, "all", false, "delete every blob")
}

func openCache(cmd *cobra.Command) (*app, cli.OutputFormat, error) {
	format, err := cli.ParseFormat(cacheFlags.output)
	if err != nil {
		return nil, "", err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, "", cli.NewCommandError(cmd.Name(), err)
	}
	return a, format, nil
}

func runCacheList(cmd *cobra.Command, args []string) error {
	a, format, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.store.List(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("cache list", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), entries)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !cacheFlags.all {
		return cli.NewConfigError("args", "name blobs to delete or pass --all")
	}

	a, _, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	names := args
	if cacheFlags.all {
		entries, err := a.store.List(ctx)
		if err != nil {
			return cli.NewCommandError("cache clear", err)
		}
		names = names[:0:0]
		for _, e := range entries {
			names = append(names, e.Name)
		}
	}

	for _, name := range names {
		if err := a.store.Delete(ctx, name); err != nil {
			return cli.NewCommandError("cache clear", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d blob(s)\n", len(names))
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	a, format, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Without manifests only age-based pruning applies.
	var m *manifest.Manifest
	if paths, err := manifestPaths(a.cfg, args); err == nil {
		raw, err := manifest.LoadFiles(paths...)
		if err != nil {
			return err
		}
		if m, err = manifest.Build(raw); err != nil {
			return err
		}
	}

	report, err := a.pruner(func() *manifest.Manifest { return m }).Prune(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("cache prune", err)
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(out, report)
	}
	for _, name := range report.Names() {
		fmt.Fprintf(out, "  removed %s (%s)\n", name, report.Removed[name])
	}
	fmt.Fprintf(out, "✓ Pruned %d blob(s), kept %d\n", len(report.Removed), report.Kept)
	return nil
}
