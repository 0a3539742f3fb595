package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/document"
	"mercator-hq/cachescript/pkg/loader"
	"mercator-hq/cachescript/pkg/manifest"
)

// formatHTML prints the rendered document.
const formatHTML = "html"

var loadFlags struct {
	output   string
	timeout  time.Duration
	document string
	progress bool
}

var loadCmd = &cobra.Command{
	Use:   "load [manifest...]",
	Short: "Run one load session and print the document",
	Long: `Load every module of the merged manifests into a document.

Manifests are merged left to right with earlier files taking precedence, so
pass user configuration before defaults. Without arguments the manifests
listed under loader.manifests in the config are used.

The command exits non-zero if any module cannot be loaded.

Examples:
  # Print the document
  cachescript load site.yaml defaults.yaml

  # Load into an existing page
  cachescript load site.yaml --document index.html

  # Show which modules came from the cache
  cachescript load site.yaml --output table`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVarP(&loadFlags.output, "output", "o", formatHTML, "output: html, text, json, table")
	loadCmd.Flags().DurationVar(&loadFlags.timeout, "timeout", 0, "override loader.timeout")
	loadCmd.Flags().StringVar(&loadFlags.document, "document", "", "HTML page to load into")
	loadCmd.Flags().BoolVar(&loadFlags.progress, "progress", false, "report progress on stderr")
}

func runLoad(cmd *cobra.Command, args []string) error {
	var format cli.OutputFormat
	if loadFlags.output != formatHTML {
		f, err := cli.ParseFormat(loadFlags.output)
		if err != nil {
			return err
		}
		format = f
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if loadFlags.timeout > 0 {
		cfg.Loader.Timeout = loadFlags.timeout
	}
	paths, err := manifestPaths(cfg, args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("load", err)
	}
	defer a.Close()

	raw, err := manifest.LoadFiles(paths...)
	if err != nil {
		return err
	}

	var doc *document.Head
	if loadFlags.document != "" {
		doc, err = a.parseDocument(loadFlags.document)
		if err != nil {
			return cli.NewConfigError("document", err.Error())
		}
	} else {
		doc = a.newDocument()
	}

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	sess, err := a.loader.Load(ctx, raw, nil, loader.Options{
		Document: doc,
		Timeout:  cfg.Loader.Timeout,
	})
	if err != nil {
		return err
	}

	if loadFlags.progress {
		go cli.TrackSession(sess, cli.NewProgressReporter(cmd.ErrOrStderr()), 100*time.Millisecond)
	}

	<-sess.Done()
	a.updateStoreSize(context.Background())

	out := cmd.OutOrStdout()
	if format == "" {
		if err := doc.Render(out); err != nil {
			return fmt.Errorf("failed to render document: %w", err)
		}
	} else if err := cli.NewFormatter(format).FormatTo(out, sess.Report()); err != nil {
		return err
	}

	if err := sess.Err(); err != nil {
		return cli.NewCommandError("load", err)
	}
	return nil
}
