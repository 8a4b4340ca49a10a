package config

import (
	"fmt"
	"net"
	"path"
	"regexp"
	"strings"

	"github.com/conneroisu/archipelago/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    - %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    - %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// Validate checks every field. Errors name fields that Load replaces with
// their defaults; warnings are advisory.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validatePathsDetails(config, result)
	validateBundlerDetails(&config.Bundler, result)
	validateCSSDetails(&config.CSS, result)
	validateServerDetails(&config.Server, result)

	result.Valid = !result.HasErrors()

	return result
}

func validatePathsDetails(config *Config, result *ValidationResult) {
	paths := []struct {
		field string
		value string
	}{
		{"paths.pages", config.Paths.Pages},
		{"paths.components", config.Paths.Components},
		{"paths.assets", config.Paths.Assets},
		{"css.input", config.CSS.Input},
		{"cache_dir", config.CacheDir},
	}

	for _, p := range paths {
		if err := validation.ValidatePath(p.value); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: err.Error(),
				Suggestions: []string{
					"Use a path relative to the project root",
					"Avoid '..' and shell metacharacters",
				},
			})
		}
	}

	if err := validation.ValidateOutputDir(config.OutputDir,
		config.Paths.Pages, config.Paths.Components, config.Paths.Assets); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "output_dir",
			Value:   config.OutputDir,
			Message: err.Error(),
			Suggestions: []string{
				"Use a dedicated directory such as 'dist'",
				"The output directory is cleaned; it must not contain sources",
			},
		})
	}
}

var scriptNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+\.m?js$`)

func validateBundlerDetails(config *BundlerConfig, result *ValidationResult) {
	if _, err := validation.ValidateCommand(config.Command, validation.AllowedTools); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "bundler.command",
			Value:   config.Command,
			Message: err.Error(),
			Suggestions: []string{
				"Use 'esbuild' or 'npx esbuild'",
			},
		})
	}

	if !scriptNamePattern.MatchString(config.ScriptName) || path.Base(config.ScriptName) != config.ScriptName {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "bundler.script_name",
			Value:   config.ScriptName,
			Message: "script name must be a bare .js file name",
			Suggestions: []string{
				"Use the default 'islandRender.js'",
			},
		})
	}
}

func validateCSSDetails(config *CSSConfig, result *ValidationResult) {
	if strings.TrimSpace(config.Command) == "" {
		return
	}

	if _, err := validation.ValidateCommand(config.Command, validation.AllowedTools); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "css.command",
			Value:   config.Command,
			Message: err.Error(),
			Suggestions: []string{
				"Use 'tailwindcss -i {input} -o {output} --minify'",
			},
		})
		return
	}

	if !strings.Contains(config.Command, "{output}") {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "css.command",
			Value:   config.Command,
			Message: "command has no {output} placeholder, styles.css may not be produced",
		})
	}
}

func validateServerDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Common development ports: 3000, 8080, 8000",
				"Port 0 allows system to assign an available port",
			},
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local development",
					"Use '0.0.0.0' to listen on all interfaces",
				},
			})
		}
	}
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}
