package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/archipelago/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, commit, build time, Go version and platform of this
binary.

Examples:
  archipelago version              # Full text
  archipelago version --short      # One line
  archipelago version -f json      # JSON`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	AddFormatFlag(versionCmd, &versionFormat, FormatText, FormatText, FormatJSON, FormatYAML)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if versionFormat != FormatText {
		return writeStructured(out, versionFormat, version.GetBuildInfo())
	}
	if versionShort {
		fmt.Fprintln(out, version.GetShortVersion())
		return nil
	}
	fmt.Fprintln(out, version.GetBuildInfo().String())
	return nil
}
