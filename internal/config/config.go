// Package config provides configuration management for archipelago using
// Viper for loading from files, environment variables and command-line flags.
//
// The configuration system reads archipelago.{yml,yaml,json,toml} from the
// working directory (or the file named by --config or
// ARCHIPELAGO_CONFIG_FILE), a .env file, and ARCHIPELAGO_* environment
// variables. Loading never fails: a malformed source falls back to defaults
// and an invalid field falls back to its own default. Both are reported as
// configuration warnings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "ARCHIPELAGO"

// ConfigName is the base name of the configuration file.
const ConfigName = "archipelago"

type Config struct {
	OutputDir string        `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	CacheDir  string        `mapstructure:"cache_dir" yaml:"cache_dir" json:"cache_dir"`
	Build     BuildConfig   `mapstructure:"build" yaml:"build" json:"build"`
	Paths     PathsConfig   `mapstructure:"paths" yaml:"paths" json:"paths"`
	CSS       CSSConfig     `mapstructure:"css" yaml:"css" json:"css"`
	Bundler   BundlerConfig `mapstructure:"bundler" yaml:"bundler" json:"bundler"`
	Format    FormatConfig  `mapstructure:"format" yaml:"format" json:"format"`
	Server    ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
}

type BuildConfig struct {
	Minify    bool `mapstructure:"minify" yaml:"minify" json:"minify"`
	Sourcemap bool `mapstructure:"sourcemap" yaml:"sourcemap" json:"sourcemap"`
}

type PathsConfig struct {
	Pages      string `mapstructure:"pages" yaml:"pages" json:"pages"`
	Components string `mapstructure:"components" yaml:"components" json:"components"`
	Assets     string `mapstructure:"assets" yaml:"assets" json:"assets"`
}

type CSSConfig struct {
	Input string `mapstructure:"input" yaml:"input" json:"input"`
	// Command is run with {input} and {output} replaced by the stylesheet
	// source and the output artifact path.
	Command string `mapstructure:"command" yaml:"command" json:"command"`
}

type BundlerConfig struct {
	Command    string `mapstructure:"command" yaml:"command" json:"command"`
	ScriptName string `mapstructure:"script_name" yaml:"script_name" json:"script_name"`
}

type FormatConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// ServerConfig configures the preview server of the serve command.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port int    `mapstructure:"port" yaml:"port" json:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: "dist",
		CacheDir:  ".archipelago",
		Build: BuildConfig{
			Minify:    true,
			Sourcemap: false,
		},
		Paths: PathsConfig{
			Pages:      "src/pages",
			Components: "src/components",
			Assets:     "public",
		},
		CSS: CSSConfig{
			Input:   "src/styles/globals.css",
			Command: "tailwindcss -i {input} -o {output} --minify",
		},
		Bundler: BundlerConfig{
			Command:    "esbuild",
			ScriptName: "islandRender.js",
		},
		Format: FormatConfig{Enabled: true},
		Server: ServerConfig{Host: "localhost", Port: 8080},
	}
}

// SetDefaults registers every key with its default so environment overrides
// are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("build.minify", d.Build.Minify)
	v.SetDefault("build.sourcemap", d.Build.Sourcemap)
	v.SetDefault("paths.pages", d.Paths.Pages)
	v.SetDefault("paths.components", d.Paths.Components)
	v.SetDefault("paths.assets", d.Paths.Assets)
	v.SetDefault("css.input", d.CSS.Input)
	v.SetDefault("css.command", d.CSS.Command)
	v.SetDefault("bundler.command", d.Bundler.Command)
	v.SetDefault("bundler.script_name", d.Bundler.ScriptName)
	v.SetDefault("format.enabled", d.Format.Enabled)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
}

// legacyKeys maps keys of the older camelCase layout to their current names.
var legacyKeys = map[string]string{
	"outputDir":              "output_dir",
	"buildOptions.minify":    "build.minify",
	"buildOptions.sourcemap": "build.sourcemap",
}

// Sources says where ReadSources looks for configuration.
type Sources struct {
	// ConfigFile is an explicit file path. When empty ARCHIPELAGO_CONFIG_FILE
	// is consulted, then archipelago.* in Dir.
	ConfigFile string
	Dir        string
	// EnvFile is loaded into the process environment when present.
	EnvFile string
}

// ReadSources wires defaults, environment and the configuration file into v.
// A missing default file is not a problem. Anything else that goes wrong is
// returned as a recoverable ConfigurationError and v keeps only its defaults.
func ReadSources(v *viper.Viper, src Sources) *builderrors.BuildError {
	SetDefaults(v)

	if src.EnvFile == "" {
		src.EnvFile = ".env"
	}
	if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return builderrors.NewConfigurationError(builderrors.ErrCodeConfigInvalid,
			"failed to load "+src.EnvFile, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if src.Dir == "" {
		src.Dir = "."
	}

	switch {
	case src.ConfigFile != "":
		v.SetConfigFile(src.ConfigFile)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		v.AddConfigPath(src.Dir)
		v.SetConfigName(ConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return builderrors.NewConfigurationError(builderrors.ErrCodeConfigInvalid,
			"failed to read configuration, using defaults", err)
	}

	return nil
}

// Load unmarshals v into a Config. It never fails: the returned warnings
// describe every source or field that was replaced by its default.
func Load(v *viper.Viper) (*Config, []*builderrors.BuildError) {
	applyLegacyKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), []*builderrors.BuildError{
			builderrors.NewConfigurationError(builderrors.ErrCodeConfigInvalid,
				"failed to decode configuration, using defaults", err),
		}
	}

	result := Validate(&cfg)
	warnings := make([]*builderrors.BuildError, 0, len(result.Errors))
	for _, ve := range result.Errors {
		resetField(&cfg, ve.Field)
		warnings = append(warnings, builderrors.NewConfigurationError(builderrors.ErrCodeConfigField,
			fmt.Sprintf("invalid %s, using default", ve.Field), &ve).
			WithContext("field", ve.Field))
	}

	return &cfg, warnings
}

// LoadGlobal loads from the process-wide viper instance the CLI populates.
func LoadGlobal() (*Config, []*builderrors.BuildError) {
	return Load(viper.GetViper())
}

func applyLegacyKeys(v *viper.Viper) {
	for legacy, current := range legacyKeys {
		if v.InConfig(legacy) && !v.InConfig(current) {
			v.Set(current, v.Get(legacy))
		}
	}
}

// resetField restores the default of one dotted configuration key.
func resetField(cfg *Config, field string) {
	d := Default()
	switch field {
	case "output_dir":
		cfg.OutputDir = d.OutputDir
	case "cache_dir":
		cfg.CacheDir = d.CacheDir
	case "paths.pages":
		cfg.Paths.Pages = d.Paths.Pages
	case "paths.components":
		cfg.Paths.Components = d.Paths.Components
	case "paths.assets":
		cfg.Paths.Assets = d.Paths.Assets
	case "css.input":
		cfg.CSS.Input = d.CSS.Input
	case "css.command":
		cfg.CSS.Command = d.CSS.Command
	case "bundler.command":
		cfg.Bundler.Command = d.Bundler.Command
	case "bundler.script_name":
		cfg.Bundler.ScriptName = d.Bundler.ScriptName
	case "server.host":
		cfg.Server.Host = d.Server.Host
	case "server.port":
		cfg.Server.Port = d.Server.Port
	}
}
