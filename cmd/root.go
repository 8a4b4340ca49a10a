package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/archipelago/internal/build"
	"github.com/conneroisu/archipelago/internal/config"
	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/metrics"
	"github.com/conneroisu/archipelago/pkg/site"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// pageSite holds the Go pages registered through ExecuteSite.
	pageSite = site.New()

	// toolRunner replaces the process runner for esbuild and the CSS tool
	// when set.
	toolRunner build.ToolRunner

	// sourceWarning is the configuration problem found while reading sources,
	// reported once a logger exists.
	sourceWarning *builderrors.BuildError
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "archipelago",
	Short: "Static site builder with partial hydration for templ pages",
	Long: `archipelago renders templ pages to static HTML and ships JavaScript only for
the interactive islands the pages actually use.

Layout:
  src/pages         pages (.templ and .go registered in Go, .md rendered directly)
  src/components    client components (.tsx, .jsx, .ts, .js)
  src/styles        stylesheet input for the CSS tool
  public            static assets copied to the output as-is

Configuration is read from archipelago.{yml,yaml,json,toml}, the file named by
--config or ARCHIPELAGO_CONFIG_FILE, a .env file and ARCHIPELAGO_* variables
(ARCHIPELAGO_OUTPUT_DIR, ARCHIPELAGO_BUILD_MINIFY, ...).

Quick Start:
  archipelago init                Create a new project
  archipelago build               Build the site into dist/
  archipelago serve               Build, watch and preview with live reload
  archipelago list                Show components and island usage`,
	SilenceUsage: true,
}

// Execute runs the CLI without Go pages. Only markdown pages can render.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteSite runs the CLI building the pages registered on s.
func ExecuteSite(s *site.Site) error {
	if s != nil {
		pageSite = s
	}
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is archipelago.yml, can also use ARCHIPELAGO_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}

// initConfig wires every configuration source into the global viper
// instance. Reading never aborts the command; problems are reported as
// warnings by loadConfig.
func initConfig() {
	sourceWarning = config.ReadSources(viper.GetViper(), config.Sources{ConfigFile: cfgFile})
}

// newLogger builds the logger selected by --log-level and --log-format,
// writing to the command's error stream.
func newLogger(cmd *cobra.Command) logging.Logger {
	level, levelErr := logging.ParseLevel(logLevel)

	format := logFormat
	if format != "json" {
		format = "text"
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: format,
		Output: cmd.ErrOrStderr(),
	})
	if levelErr != nil {
		logger.Warn(commandContext(cmd), levelErr, "Falling back to info log level")
	}
	return logger
}

// loadConfig returns the effective configuration and logs every value that
// fell back to its default.
func loadConfig(ctx context.Context, logger logging.Logger) *config.Config {
	handler := builderrors.NewErrorHandler(logger)
	if sourceWarning != nil {
		handler.Handle(ctx, sourceWarning)
	}

	cfg, warnings := config.LoadGlobal()
	for _, w := range warnings {
		handler.Handle(ctx, w)
	}
	return cfg
}

// newPipeline creates a build pipeline for the registered site.
func newPipeline(cfg *config.Config, logger logging.Logger, recorder metrics.Recorder) *build.Pipeline {
	opts := []build.Option{build.WithLogger(logger)}
	if recorder != nil {
		opts = append(opts, build.WithRecorder(recorder))
	}
	if toolRunner != nil {
		opts = append(opts, build.WithRunner(toolRunner))
	}
	return build.NewPipeline(cfg, pageSite, opts...)
}

// commandContext returns the command context, or a background context when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Main runs ExecuteSite and exits with status 1 on any fatal error.
func Main(s *site.Site) {
	if err := ExecuteSite(s); err != nil {
		os.Exit(1)
	}
}
