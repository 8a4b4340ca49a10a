package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/archipelago/internal/scaffolding"
)

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Create a new archipelago project",
	Long: `Lay out a new project with the default directories, an archipelago.yml
holding the default configuration, an index page and a stylesheet. Files that
already exist are kept, so init is safe to run in an existing project.

Examples:
  archipelago init                  # Initialize the current directory
  archipelago init my-site          # Initialize a new directory
  archipelago init --minimal        # Skip package.json and the example component
  archipelago init --name "My Site" # Title the index page`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initMinimal bool
	initName    string
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initMinimal, "minimal", false, "Minimal setup without package.json and example component")
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default is the directory name)")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	gen := scaffolding.NewGenerator(afero.NewOsFs(), newLogger(cmd))
	created, err := gen.CreateProject(commandContext(cmd), dir, scaffolding.ProjectOptions{
		Name:    initName,
		Minimal: initMinimal,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(created) == 0 {
		fmt.Fprintf(out, "Nothing to do, %s is already initialized\n", dir)
		return nil
	}

	fmt.Fprintf(out, "Initialized %s:\n", dir)
	for _, f := range created {
		fmt.Fprintf(out, "  %s\n", f)
	}
	fmt.Fprintln(out, "\nNext steps:")
	if dir != "." {
		fmt.Fprintf(out, "  cd %s\n", dir)
	}
	if !initMinimal {
		fmt.Fprintln(out, "  npm install")
	}
	fmt.Fprintln(out, "  archipelago serve")
	return nil
}
