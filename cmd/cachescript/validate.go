package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/cachescript/pkg/cli"
	"mercator-hq/cachescript/pkg/manifest"
)

var validateFlags struct {
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate [manifest...]",
	Short: "Check the config and manifests without loading",
	Long: `Parse and merge the manifests, then check every module and its after
references. A dependency cycle or a reference to an unknown module is an
error. On success the load order is printed as levels: modules in the same
level may load in parallel.

Examples:
  cachescript validate site.yaml defaults.yaml
  cachescript validate --config cachescript.yaml --output json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output: text, json")
}

// validationResult is the JSON form of a successful validation.
type validationResult struct {
	Valid   bool       `json:"valid"`
	Modules int        `json:"modules"`
	Levels  [][]string `json:"levels"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.output)
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

	raw, err := manifest.LoadFiles(paths...)
	if err != nil {
		return err
	}
	m, err := manifest.Build(raw)
	if err != nil {
		return err
	}
	levels, err := manifest.Levels(m)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(out, validationResult{
			Valid:   true,
			Modules: len(m.Modules),
			Levels:  levels,
		})
	}

	fmt.Fprintf(out, "✓ %d modules valid (%s)\n", len(m.Modules), strings.Join(paths, ", "))
	for i, level := range levels {
		fmt.Fprintf(out, "  level %d: %s\n", i, strings.Join(level, ", "))
	}
	return nil
}
