package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Bundle every client component without rendering pages",
	Long: `Generate the hydration bundle for every valid client component in the
components directory, whether or not a page uses it. Pages are not rendered
and the output directory is not reconciled.

Examples:
  archipelago bundle               # Bundle all components into dist/islandRender.js
  archipelago bundle --sourcemap   # Also emit islandRender.js.map`,
	RunE: runBundle,
}

var bundleFlags *BuildFlags

func init() {
	rootCmd.AddCommand(bundleCmd)
	bundleFlags = AddBuildFlags(bundleCmd)
}

func runBundle(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := newLogger(cmd)
	cfg := loadConfig(ctx, logger)
	if err := bundleFlags.Apply(cmd.Flags(), cfg); err != nil {
		return err
	}

	res, err := newPipeline(cfg, logger, nil).BundleComponents(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Empty {
		fmt.Fprintf(out, "No valid client components in %s, wrote an empty hydration module\n", cfg.Paths.Components)
	} else {
		fmt.Fprintf(out, "Bundled %d component(s): %s\n", len(res.Components), strings.Join(res.Components, ", "))
	}
	fmt.Fprintf(out, "  output: %s\n", res.OutputPath)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  warning: %v\n", w)
	}
	return nil
}
