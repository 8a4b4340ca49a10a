package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/archipelago/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or validate the archipelago configuration",
	Long: `Inspect the configuration assembled from archipelago.yml, the .env file and
ARCHIPELAGO_* environment variables.

Examples:
  archipelago config show                   # Effective configuration as YAML
  archipelago config show -f json           # ... as JSON
  archipelago config validate               # Check every field
  archipelago config validate --config site.yml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration a build would use. Invalid values are shown with
the default that replaces them.`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Check every configuration field. Errors name values a build would replace
with their defaults; warnings are advisory. Exits with status 1 on errors.`,
	RunE: runConfigValidate,
}

var configShowFormat string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	AddFormatFlag(configShowCmd, &configShowFormat, FormatYAML, FormatYAML, FormatJSON)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)
	cfg := loadConfig(commandContext(cmd), logger)
	return writeStructured(cmd.OutOrStdout(), configShowFormat, cfg)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if sourceWarning != nil {
		fmt.Fprintf(out, "Configuration could not be read: %v\n", sourceWarning)
		return sourceWarning
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	result := config.Validate(&cfg)
	if !result.HasErrors() && !result.HasWarnings() {
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "Configuration %s is valid\n", used)
		} else {
			fmt.Fprintln(out, "No configuration file found, defaults are valid")
		}
		return nil
	}

	fmt.Fprint(out, result.String())
	if result.HasErrors() {
		return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
	}
	return nil
}
