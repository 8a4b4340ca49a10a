package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/archipelago/internal/config"
	"github.com/conneroisu/archipelago/internal/validation"
)

// Output formats shared by the listing commands.
const (
	FormatTable = "table"
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// BuildFlags are the configuration overrides shared by build and serve.
type BuildFlags struct {
	Output    string
	NoMinify  bool
	Sourcemap bool
}

// AddBuildFlags registers the build override flags on cmd.
func AddBuildFlags(cmd *cobra.Command) *BuildFlags {
	flags := &BuildFlags{}
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Output directory (overrides output_dir)")
	cmd.Flags().BoolVar(&flags.NoMinify, "no-minify", false, "Skip minification of the hydration bundle")
	cmd.Flags().BoolVar(&flags.Sourcemap, "sourcemap", false, "Emit a source map next to the hydration bundle")
	return flags
}

// Apply writes the flags the user set into cfg. The output directory is
// checked against the source roots before it is accepted.
func (f *BuildFlags) Apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("output") {
		if err := validation.ValidateOutputDir(f.Output, cfg.Paths.Pages, cfg.Paths.Components, cfg.Paths.Assets); err != nil {
			return fmt.Errorf("invalid --output: %w", err)
		}
		cfg.OutputDir = f.Output
	}
	if fs.Changed("no-minify") {
		cfg.Build.Minify = !f.NoMinify
	}
	if fs.Changed("sourcemap") {
		cfg.Build.Sourcemap = f.Sourcemap
	}
	return nil
}

// AddFormatFlag registers --format/-f limited to allowed.
func AddFormatFlag(cmd *cobra.Command, target *string, def string, allowed ...string) {
	cmd.Flags().StringVarP(target, "format", "f", def,
		fmt.Sprintf("Output format (%s)", strings.Join(allowed, "|")))
	AddFlagValidation(cmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, allowed)
	})
}

// ValidateFormatWithSuggestion rejects a format outside allowed and names
// the closest allowed one.
func ValidateFormatWithSuggestion(format string, allowed []string) error {
	lower := strings.ToLower(format)
	for _, a := range allowed {
		if lower == a {
			return nil
		}
	}

	for _, a := range allowed {
		if strings.HasPrefix(a, lower) || strings.HasPrefix(lower, a) {
			return fmt.Errorf("unsupported format %q, did you mean %q?", format, a)
		}
	}
	return fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(allowed, ", "))
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(strings.ToLower(val))
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
