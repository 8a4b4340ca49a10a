// Package renderer turns page sources into static markup.
//
// Go and templ pages are resolved through the site registry, markdown pages
// are rendered from their source file. Every page is rendered into memory
// inside an island render scope so island instance numbering is owned by the
// build, then pretty-printed on a best-effort basis.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/spf13/afero"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/types"
	"github.com/conneroisu/archipelago/pkg/island"
	"github.com/conneroisu/archipelago/pkg/site"
)

// Options configures a PageRenderer.
type Options struct {
	// ScriptName is the hydration bundle file name at the output root.
	ScriptName string
	// Stylesheet is the CSS artifact linked from markdown pages. Empty means
	// no link.
	Stylesheet string
	// Format enables pretty-printing.
	Format bool
}

// PageRenderer renders pages of one site.
type PageRenderer struct {
	fs        afero.Fs
	site      *site.Site
	logger    logging.Logger
	formatter Formatter
	markdown  *MarkdownRenderer
	opts      Options
}

// NewPageRenderer creates a renderer. fs is used to read markdown pages.
func NewPageRenderer(fs afero.Fs, s *site.Site, logger logging.Logger, opts Options) *PageRenderer {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.ScriptName == "" {
		opts.ScriptName = island.DefaultScriptSrc
	}
	return &PageRenderer{
		fs:        fs,
		site:      s,
		logger:    logger.WithComponent("renderer"),
		formatter: HTMLFormatter{},
		markdown:  NewMarkdownRenderer(fs),
		opts:      opts,
	}
}

// SetFormatter replaces the pretty-printer.
func (r *PageRenderer) SetFormatter(f Formatter) {
	r.formatter = f
}

// Render buffers the output of component into a string. A returned error or
// a panic becomes a RenderError.
func Render(ctx context.Context, component templ.Component) (markup string, err error) {
	if component == nil {
		return "", fmt.Errorf("nil component")
	}

	defer func() {
		if rec := recover(); rec != nil {
			markup = ""
			err = fmt.Errorf("render panicked: %v", rec)
		}
	}()

	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Resolve returns the component implementing page.
func (r *PageRenderer) Resolve(page *types.PageSource) (templ.Component, error) {
	switch page.Kind {
	case types.PageKindMarkdown:
		return r.markdown.Component(page, ScriptSrc(page.OutputPath, r.opts.Stylesheet)), nil
	default:
		component, ok := r.site.Lookup(page.ID)
		if !ok {
			return nil, builderrors.NewValidationError(builderrors.ErrCodePageUnresolved,
				fmt.Sprintf("no component registered for page %q", page.ID)).WithFile(page.RelPath)
		}
		return component, nil
	}
}

// ResolveAll checks that every page has an implementation. All unresolved
// pages are reported in one ValidationError.
func (r *PageRenderer) ResolveAll(pages []*types.PageSource) error {
	var missing []string
	for _, page := range pages {
		if _, err := r.Resolve(page); err != nil {
			missing = append(missing, page.RelPath)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return builderrors.NewValidationError(builderrors.ErrCodePageUnresolved,
		"pages without a registered component: "+strings.Join(missing, ", ")).
		WithContext("pages", missing)
}

// RenderPage renders page inside an island scope that draws instance
// identifiers from counter. A formatting failure is returned as a warning
// next to a page holding the raw markup.
func (r *PageRenderer) RenderPage(ctx context.Context, page *types.PageSource, counter *island.Counter) (*types.RenderedPage, *builderrors.BuildError, error) {
	component, err := r.Resolve(page)
	if err != nil {
		return nil, nil, err
	}

	scoped := island.WithScope(ctx, &island.Scope{
		Counter:   counter,
		ScriptSrc: ScriptSrc(page.OutputPath, r.opts.ScriptName),
	})

	markup, err := Render(scoped, component)
	if err != nil {
		return nil, nil, builderrors.NewRenderError(page.RelPath, err)
	}

	rendered := &types.RenderedPage{
		Source:     page,
		Markup:     markup,
		OutputPath: page.OutputPath,
	}

	if !r.opts.Format {
		return rendered, nil, nil
	}

	result := FormatMarkup(r.formatter, markup)
	rendered.Markup = result.Markup
	rendered.Formatted = result.Formatted
	if result.Warning != nil {
		result.Warning.WithFile(page.RelPath)
		r.logger.Warn(ctx, result.Warning, "Formatting failed, using unformatted markup", "page", page.RelPath)
	}

	return rendered, result.Warning, nil
}

// ScriptSrc returns the reference to name, a file at the output root, from
// the page at outputPath.
func ScriptSrc(outputPath, name string) string {
	if name == "" {
		return ""
	}
	depth := strings.Count(path.Clean(outputPath), "/")
	return strings.Repeat("../", depth) + name
}
