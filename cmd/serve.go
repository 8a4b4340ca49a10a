package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/archipelago/internal/build"
	"github.com/conneroisu/archipelago/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Build, watch and preview the site with live reload",
	Long: `Build the site, rebuild on every source change and serve the output
directory over HTTP. Open pages reload after each successful rebuild; a failed
rebuild is reported in the browser console and the last good output stays up.

The server only serves files; there is no server-side routing beyond
"/about" resolving to about.html or about/index.html.

Examples:
  archipelago serve                 # http://localhost:8080
  archipelago serve -p 3000         # Another port
  archipelago serve --no-watch      # Serve the current output once built`,
	RunE: runServe,
}

var (
	serveFlags   *BuildFlags
	serveNoWatch bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags = AddBuildFlags(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not rebuild on source changes")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cmd)
	cfg := loadConfig(ctx, logger)
	if err := serveFlags.Apply(cmd.Flags(), cfg); err != nil {
		return err
	}

	pipeline := newPipeline(cfg, logger, nil)
	out := cmd.OutOrStdout()

	report, err := pipeline.Build(ctx)
	printReport(out, report, err)

	srv := server.New(cfg, afero.NewOsFs(), logger)

	if !serveNoWatch {
		go func() {
			werr := watchAndRebuild(ctx, cfg, logger, pipeline, func(report *build.Report, err error) {
				printReport(out, report, err)
				srv.NotifyBuild(ctx, report, err)
			})
			if werr != nil {
				logger.Error(ctx, werr, "Watcher stopped")
			}
		}()
	}

	fmt.Fprintf(out, "Serving %s at http://%s\n", cfg.OutputDir, srv.Addr())
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
