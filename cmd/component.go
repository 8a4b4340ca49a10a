package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/archipelago/internal/scaffolding"
)

var componentCmd = &cobra.Command{
	Use:   "component",
	Short: "Generate client components",
	Long: `Create client component modules from built-in templates.

Examples:
  archipelago component create Counter -t counter
  archipelago component create date-picker         # Creates DatePicker.tsx
  archipelago component create Logo --ext jsx --default
  archipelago component list                       # Available templates`,
}

var componentCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a client component from a template",
	Long: `Write a new component module to the components directory. The name is
turned into the component identifier ("date-picker" becomes DatePicker), which
is also the file name pages reference the island by.`,
	Args: cobra.ExactArgs(1),
	RunE: runComponentCreate,
}

var componentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List component templates",
	RunE:  runComponentList,
}

var (
	componentTemplate string
	componentExt      string
	componentDefault  bool
	componentForce    bool
	componentFormat   string
)

func init() {
	rootCmd.AddCommand(componentCmd)
	componentCmd.AddCommand(componentCreateCmd)
	componentCmd.AddCommand(componentListCmd)

	componentCreateCmd.Flags().StringVarP(&componentTemplate, "template", "t", scaffolding.DefaultTemplate, "Template to use")
	componentCreateCmd.Flags().StringVar(&componentExt, "ext", "tsx", "File extension (tsx, jsx)")
	componentCreateCmd.Flags().BoolVar(&componentDefault, "default", false, "Use a default export instead of a named one")
	componentCreateCmd.Flags().BoolVar(&componentForce, "force", false, "Overwrite an existing component")

	AddFormatFlag(componentListCmd, &componentFormat, FormatTable, FormatTable, FormatJSON, FormatYAML)
}

func runComponentCreate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := newLogger(cmd)
	cfg := loadConfig(ctx, logger)

	file, err := scaffolding.NewGenerator(afero.NewOsFs(), logger).CreateComponent(ctx, scaffolding.ComponentOptions{
		Name:     args[0],
		Template: componentTemplate,
		Dir:      cfg.Paths.Components,
		Ext:      componentExt,
		Default:  componentDefault,
		Force:    componentForce,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", file)
	return nil
}

type templateRow struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

func runComponentList(cmd *cobra.Command, args []string) error {
	var rows []templateRow
	for _, t := range scaffolding.Templates() {
		rows = append(rows, templateRow{Name: t.Name, Description: t.Description})
	}

	out := cmd.OutOrStdout()
	if componentFormat != FormatTable {
		return writeStructured(out, componentFormat, rows)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE\tDESCRIPTION")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.Description)
	}
	return tw.Flush()
}
