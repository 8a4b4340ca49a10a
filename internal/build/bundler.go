package build

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"github.com/spf13/afero"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/registry"
	"github.com/conneroisu/archipelago/internal/types"
)

// EntryModuleName is the generated hydration entry written to the cache
// directory and handed to the bundler.
const EntryModuleName = "islandRender.entry.jsx"

var hydrationModule = template.Must(template.New("hydration").Parse(`// Generated by archipelago. Do not edit.
import { createElement } from "react";
import { createRoot } from "react-dom/client";
{{range .}}{{if .Default}}import {{.Local}} from "{{js .Path}}";
{{else}}import { {{.ID}} as {{.Local}} } from "{{js .Path}}";
{{end}}{{end}}
const components = Object.create(null);
{{range .}}components["{{js .ID}}"] = {{.Local}};
{{end}}
function hydrateIslands() {
  document.querySelectorAll("[data-island]").forEach((el) => {
    const name = el.getAttribute("data-island");
    const Component = components[name];
    if (!Component) {
      console.warn("archipelago: no component registered for island", name);
      return;
    }
    try {
      const props = JSON.parse(el.getAttribute("data-props") || "{}");
      createRoot(el).render(createElement(Component, props));
    } catch (err) {
      console.error("archipelago: failed to hydrate island", name, err);
    }
  });
}

if (document.readyState === "loading") {
  document.addEventListener("DOMContentLoaded", hydrateIslands);
} else {
  hydrateIslands();
}
`))

// emptyModule is written when no page references an island.
const emptyModule = `// Generated by archipelago. Do not edit.
function hydrateIslands() {
  console.debug("archipelago: no islands on this site, skipping hydration");
}

hydrateIslands();
`

type moduleImport struct {
	ID      string
	Local   string
	Path    string
	Default bool
}

// BundlerOptions configures the hydration bundler.
type BundlerOptions struct {
	// Command is the bundler command line, "esbuild" by default.
	Command    string
	OutputDir  string
	CacheDir   string
	ScriptName string
	Minify     bool
	Sourcemap  bool
}

// BundleResult describes one generated hydration bundle.
type BundleResult struct {
	// Components are the bundled identifiers in lexicographic order.
	Components []string
	// Missing are referenced identifiers with no usable catalog entry.
	Missing []string
	// Empty is set when the no-op module was written.
	Empty bool
	// Module is the generated entry source.
	Module string
	// EntryPath is where Module was written. Empty for the no-op module,
	// which goes straight to OutputPath.
	EntryPath  string
	OutputPath string
	Warnings   []*builderrors.BuildError
}

// HydrationBundler generates the client module that mounts islands and runs
// the external bundler over it.
type HydrationBundler struct {
	fs     afero.Fs
	runner ToolRunner
	logger logging.Logger
	opts   BundlerOptions
}

// NewHydrationBundler creates a bundler writing through fs.
func NewHydrationBundler(fs afero.Fs, runner ToolRunner, logger logging.Logger, opts BundlerOptions) *HydrationBundler {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Command == "" {
		opts.Command = "esbuild"
	}
	if opts.ScriptName == "" {
		opts.ScriptName = "islandRender.js"
	}
	return &HydrationBundler{
		fs:     fs,
		runner: runner,
		logger: logger.WithComponent("bundler"),
		opts:   opts,
	}
}

// Generate writes the hydration bundle. A nil used set bundles every valid
// catalog entry. Otherwise only the referenced entries are bundled, each
// referenced identifier without an entry yields a ResolutionWarning, and an
// empty selection writes the no-op module without invoking the bundler.
func (b *HydrationBundler) Generate(ctx context.Context, catalog *registry.ComponentCatalog, used *types.UsedComponentSet) (*BundleResult, error) {
	result := &BundleResult{
		OutputPath: filepath.Join(b.opts.OutputDir, b.opts.ScriptName),
	}

	selected := b.selectEntries(catalog, used, result)
	if len(result.Missing) > 0 {
		w := builderrors.NewResolutionWarning(result.Missing)
		result.Warnings = append(result.Warnings, w)
		b.logger.Warn(ctx, w, "Islands reference unknown components", "missing", result.Missing)
	}
	result.Warnings = append(result.Warnings, collisionWarnings(catalog)...)

	if len(selected) == 0 {
		return result, b.writeEmpty(ctx, result)
	}

	imports := make([]moduleImport, 0, len(selected))
	for _, e := range selected {
		imports = append(imports, moduleImport{
			ID:      e.ID,
			Local:   "island_" + e.ID,
			Path:    registry.ImportPath(b.opts.CacheDir, e),
			Default: e.Export == types.ExportDefault,
		})
		result.Components = append(result.Components, e.ID)
	}

	var buf bytes.Buffer
	if err := hydrationModule.Execute(&buf, imports); err != nil {
		return nil, builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to generate hydration module", err)
	}
	result.Module = buf.String()

	result.EntryPath = filepath.Join(b.opts.CacheDir, EntryModuleName)
	if err := writeFile(b.fs, result.EntryPath, buf.Bytes()); err != nil {
		return nil, err
	}

	if err := runTool(ctx, b.runner, b.opts.Command, b.bundlerArgs(result)...); err != nil {
		return nil, err
	}
	if !b.opts.Sourcemap {
		b.removeStaleSourcemap(result.OutputPath)
	}

	b.logger.Info(ctx, "Hydration bundle generated",
		"components", result.Components, "output", result.OutputPath)
	return result, nil
}

func (b *HydrationBundler) selectEntries(catalog *registry.ComponentCatalog, used *types.UsedComponentSet, result *BundleResult) []*types.ComponentCatalogEntry {
	var selected []*types.ComponentCatalogEntry

	if used == nil {
		for _, e := range catalog.Entries() {
			if e.Valid {
				selected = append(selected, e)
			}
		}
		return selected
	}

	for _, id := range used.IDs() {
		e, ok := catalog.Get(id)
		if !ok || !e.Valid {
			result.Missing = append(result.Missing, id)
			continue
		}
		selected = append(selected, e)
	}
	return selected
}

// collisionWarnings reports every identifier defined by more than one file,
// bundled or not.
func collisionWarnings(catalog *registry.ComponentCatalog) []*builderrors.BuildError {
	var warnings []*builderrors.BuildError
	for _, c := range catalog.Collisions() {
		warnings = append(warnings, builderrors.NewCollisionWarning(c.Name, c.Files))
	}
	return warnings
}

func (b *HydrationBundler) bundlerArgs(result *BundleResult) []string {
	args := []string{
		result.EntryPath,
		"--bundle",
		"--format=esm",
		"--jsx=automatic",
	}
	if b.opts.Minify {
		args = append(args, "--minify")
	}
	if b.opts.Sourcemap {
		args = append(args, "--sourcemap")
	}
	return append(args, "--outfile="+result.OutputPath)
}

func (b *HydrationBundler) writeEmpty(ctx context.Context, result *BundleResult) error {
	result.Empty = true
	result.Module = emptyModule
	if err := writeFile(b.fs, result.OutputPath, []byte(emptyModule)); err != nil {
		return err
	}
	b.removeStaleSourcemap(result.OutputPath)
	b.logger.Info(ctx, "No islands referenced, wrote empty hydration module", "output", result.OutputPath)
	return nil
}

func (b *HydrationBundler) removeStaleSourcemap(output string) {
	if err := b.fs.Remove(output + ".map"); err != nil && !os.IsNotExist(err) {
		b.logger.Debug(context.Background(), "Could not remove stale source map", "path", output+".map", "error", err)
	}
}

// GeneratedNames are the files at the output root owned by the bundler.
func (b *HydrationBundler) GeneratedNames() []string {
	return []string{b.opts.ScriptName, b.opts.ScriptName + ".map"}
}

// writeFile creates parent directories and writes data.
func writeFile(fs afero.Fs, name string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to create directory", err).
			WithFile(path.Dir(filepath.ToSlash(name)))
	}
	if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to write file", err).
			WithFile(name)
	}
	return nil
}
