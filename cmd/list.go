package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/archipelago/internal/build"
	"github.com/conneroisu/archipelago/internal/discovery"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List client components, pages and island usage",
	Long: `Render every page in memory and report which client components exist,
which pages use them and which would be bundled. Nothing is written.

Examples:
  archipelago list                 # Tables
  archipelago list -f json         # JSON
  archipelago list --format yaml   # YAML
  archipelago list --unused        # Only components no page references`,
	RunE: runList,
}

var (
	listFormat string
	listUnused bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	AddFormatFlag(listCmd, &listFormat, FormatTable, FormatTable, FormatJSON, FormatYAML)
	listCmd.Flags().BoolVarP(&listUnused, "unused", "u", false, "Only list components no page references")
}

// componentRow describes one client component module.
type componentRow struct {
	ID        string   `json:"id" yaml:"id"`
	File      string   `json:"file" yaml:"file"`
	Export    string   `json:"export" yaml:"export"`
	Valid     bool     `json:"valid" yaml:"valid"`
	Collision bool     `json:"collision,omitempty" yaml:"collision,omitempty"`
	Pages     int      `json:"pages" yaml:"pages"`
	Errors    []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// pageRow describes one page and the islands it renders.
type pageRow struct {
	ID      string   `json:"id" yaml:"id"`
	Source  string   `json:"source" yaml:"source"`
	Output  string   `json:"output" yaml:"output"`
	Kind    string   `json:"kind" yaml:"kind"`
	Islands []string `json:"islands" yaml:"islands"`
}

type listing struct {
	Components []componentRow `json:"components" yaml:"components"`
	Pages      []pageRow      `json:"pages" yaml:"pages"`
	Missing    []string       `json:"missing,omitempty" yaml:"missing,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := newLogger(cmd)
	cfg := loadConfig(ctx, logger)

	inv, err := newPipeline(cfg, logger, nil).Inspect(ctx)
	if err != nil {
		return err
	}

	l := newListing(inv, listUnused)
	out := cmd.OutOrStdout()
	if listFormat == FormatTable {
		return writeListingTable(out, l)
	}
	return writeStructured(out, listFormat, l)
}

func newListing(inv *build.Inventory, unusedOnly bool) listing {
	var l listing

	for _, entry := range inv.Catalog.All() {
		owner, _ := inv.Catalog.Get(entry.ID)
		pages := 0
		if owner == entry {
			pages = inv.Used[entry.ID]
		}
		if unusedOnly && pages > 0 {
			continue
		}
		l.Components = append(l.Components, componentRow{
			ID:        entry.ID,
			File:      entry.RelPath,
			Export:    string(entry.Export),
			Valid:     entry.Valid,
			Collision: entry.Collision,
			Pages:     pages,
			Errors:    entry.Errors,
		})
	}

	if !unusedOnly {
		for _, page := range inv.Rendered {
			islands := make([]string, 0)
			for id := range discovery.Discover(page.Markup) {
				islands = append(islands, id)
			}
			sort.Strings(islands)
			l.Pages = append(l.Pages, pageRow{
				ID:      page.Source.ID,
				Source:  page.Source.RelPath,
				Output:  page.OutputPath,
				Kind:    string(page.Source.Kind),
				Islands: islands,
			})
		}

		for _, id := range inv.Used.IDs() {
			if _, ok := inv.Catalog.Get(id); !ok {
				l.Missing = append(l.Missing, id)
			}
		}
	}

	return l
}

func writeListingTable(w io.Writer, l listing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "COMPONENT\tFILE\tEXPORT\tSTATUS\tPAGES")
	for _, c := range l.Components {
		status := "ok"
		switch {
		case !c.Valid:
			status = "invalid"
		case c.Collision:
			status = "collision"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", c.ID, c.File, exportLabel(c.Export), status, c.Pages)
	}

	if len(l.Pages) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "PAGE\tOUTPUT\tKIND\tISLANDS")
		for _, p := range l.Pages {
			islands := "-"
			if len(p.Islands) > 0 {
				islands = strings.Join(p.Islands, ", ")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Output, p.Kind, islands)
		}
	}

	if len(l.Missing) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Referenced but missing:\t%s\n", strings.Join(l.Missing, ", "))
	}

	return tw.Flush()
}

func exportLabel(export string) string {
	if export == "" {
		return "-"
	}
	return export
}
