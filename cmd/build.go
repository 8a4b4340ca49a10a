package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/archipelago/internal/build"
	"github.com/conneroisu/archipelago/internal/config"
	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/metrics"
	"github.com/conneroisu/archipelago/internal/types"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the static site",
	Long: `Render every page, bundle the client components the pages reference and
reconcile the output directory with the current sources.

Stale generated pages are removed, static assets are mirrored and files the
build does not recognize are left alone. Any fatal error exits with status 1
and leaves the previously built pages in place.

Examples:
  archipelago build                         # Build into dist/
  archipelago build --watch                 # Rebuild on every source change
  archipelago build -o public_html          # Build into another directory
  archipelago build --no-minify --sourcemap # Debuggable bundle
  archipelago build --report build.yml      # Write the build report as YAML
  archipelago build --metrics-file build.prom`,
	RunE: runBuild,
}

var (
	buildFlags       *BuildFlags
	buildWatch       bool
	buildMetricsFile string
	buildReportFile  string
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildFlags = AddBuildFlags(buildCmd)
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "Rebuild when sources change")
	buildCmd.Flags().StringVar(&buildMetricsFile, "metrics-file", "",
		"Write Prometheus metrics in text format to this file after every build")
	buildCmd.Flags().StringVar(&buildReportFile, "report", "", "Write the build report to this file (.yml, .yaml or .json)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cmd)
	cfg := loadConfig(ctx, logger)
	if err := buildFlags.Apply(cmd.Flags(), cfg); err != nil {
		return err
	}

	recorder := metrics.NewPrometheusRecorder(nil)
	pipeline := newPipeline(cfg, logger, recorder)
	out := cmd.OutOrStdout()

	afterBuild := func(report *build.Report, err error) {
		printReport(out, report, err)
		if buildReportFile != "" {
			if werr := writeReportFile(buildReportFile, report, err); werr != nil {
				logger.Warn(ctx, werr, "Failed to write build report", "file", buildReportFile)
			}
		}
		if buildMetricsFile != "" {
			if werr := recorder.WriteTextfile(buildMetricsFile); werr != nil {
				logger.Warn(ctx, werr, "Failed to write metrics", "file", buildMetricsFile)
			}
		}
	}

	report, err := pipeline.Build(ctx)
	afterBuild(report, err)

	if !buildWatch {
		return err
	}

	buildMetrics := build.NewBuildMetrics()
	buildMetrics.RecordBuild(report, err)

	return watchAndRebuild(ctx, cfg, logger, pipeline, func(report *build.Report, err error) {
		buildMetrics.RecordBuild(report, err)
		afterBuild(report, err)
		snapshot := buildMetrics.GetSnapshot()
		logger.Info(ctx, "Watch session",
			"builds", snapshot.TotalBuilds,
			"failed", snapshot.FailedBuilds,
			"success_rate", fmt.Sprintf("%.0f%%", buildMetrics.GetSuccessRate()),
			"average", snapshot.AverageDuration)
	})
}

// printReport writes the human summary of one build.
func printReport(w io.Writer, report *build.Report, err error) {
	if err != nil {
		fmt.Fprintf(w, "Build failed: %v\n", err)
		if report != nil && len(report.Warnings) > 0 {
			fmt.Fprintf(w, "  %d warning(s) before the failure\n", len(report.Warnings))
		}
		return
	}
	if report == nil {
		return
	}

	fmt.Fprintf(w, "Built %d page(s) in %s (build %s)\n",
		len(report.Pages), report.Duration.Round(time.Millisecond), shortID(report.BuildID))

	if len(report.Bundled) > 0 {
		fmt.Fprintf(w, "  islands:  %s\n", strings.Join(report.Bundled, ", "))
	} else {
		fmt.Fprintln(w, "  islands:  none, hydration skipped")
	}
	fmt.Fprintf(w, "  written:  %d, removed: %d, assets: %d\n", report.Written, report.Removed, report.Copied)
	if report.Stylesheet {
		fmt.Fprintf(w, "  styles:   %s\n", build.StylesheetName)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "  warning:  %v\n", warning)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// buildReportDoc is the serialized form of a build report.
type buildReportDoc struct {
	BuildID    string                 `json:"build_id" yaml:"build_id"`
	Status     string                 `json:"status" yaml:"status"`
	Error      string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Pages      []string               `json:"pages" yaml:"pages"`
	Islands    []types.ComponentUsage `json:"islands" yaml:"islands"`
	Bundled    []string               `json:"bundled" yaml:"bundled"`
	Stylesheet bool                   `json:"stylesheet" yaml:"stylesheet"`
	Written    int                    `json:"written" yaml:"written"`
	Removed    int                    `json:"removed" yaml:"removed"`
	Copied     int                    `json:"copied" yaml:"copied"`
	Warnings   []reportWarning        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Duration   string                 `json:"duration" yaml:"duration"`
}

type reportWarning struct {
	Kind    string `json:"kind" yaml:"kind"`
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
}

func newReportDoc(report *build.Report, err error) buildReportDoc {
	doc := buildReportDoc{Status: "success"}
	if err != nil {
		doc.Status = "failed"
		doc.Error = err.Error()
	}
	if report == nil {
		return doc
	}

	doc.BuildID = report.BuildID
	doc.Pages = report.Pages
	doc.Islands = report.Used.Sorted()
	doc.Bundled = report.Bundled
	doc.Stylesheet = report.Stylesheet
	doc.Written = report.Written
	doc.Removed = report.Removed
	doc.Copied = report.Copied
	doc.Duration = report.Duration.String()
	for _, w := range report.Warnings {
		doc.Warnings = append(doc.Warnings, reportWarning{
			Kind:    string(w.Kind),
			Code:    w.Code,
			Message: w.Error(),
			File:    w.FilePath,
		})
	}
	return doc
}

// writeReportFile writes the report as JSON for a .json name and YAML
// otherwise.
func writeReportFile(name string, report *build.Report, buildErr error) error {
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(name), ".json") {
		format = FormatJSON
	}

	f, err := os.Create(name)
	if err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to create report", err).WithFile(name)
	}
	defer f.Close()

	return writeStructured(f, format, newReportDoc(report, buildErr))
}

// watchAndRebuild rebuilds on every debounced batch of source changes until
// ctx is cancelled. Builds run one at a time on the watcher goroutine.
func watchAndRebuild(ctx context.Context, cfg *config.Config, logger logging.Logger, pipeline *build.Pipeline, onBuild func(*build.Report, error)) error {
	fw, err := newSourceWatcher(cfg, logger, func(ctx context.Context, changed []string) {
		logger.Info(ctx, "Sources changed, rebuilding", "files", changed)
		report, err := pipeline.Build(ctx)
		onBuild(report, err)
	})
	if err != nil {
		return err
	}
	defer fw.Stop()

	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	logger.Info(ctx, "Watching for changes", "pages", cfg.Paths.Pages, "components", cfg.Paths.Components)

	<-ctx.Done()
	return nil
}
