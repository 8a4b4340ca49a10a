package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/archipelago/internal/types"
)

// MarkdownRenderer renders .md pages into standalone documents.
type MarkdownRenderer struct {
	fs    afero.Fs
	md    goldmark.Markdown
	title cases.Caser
}

// NewMarkdownRenderer creates a renderer reading page sources through fs.
func NewMarkdownRenderer(fs afero.Fs) *MarkdownRenderer {
	return &MarkdownRenderer{
		fs: fs,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		title: cases.Title(language.English),
	}
}

// Component returns a component that renders page. stylesheet, when not
// empty, is linked from the document head.
func (m *MarkdownRenderer) Component(page *types.PageSource, stylesheet string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		source, err := afero.ReadFile(m.fs, page.AbsPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", page.RelPath, err)
		}
		return m.Render(w, source, page.RelPath, stylesheet)
	})
}

// Render writes the document for source to w.
func (m *MarkdownRenderer) Render(w io.Writer, source []byte, relPath, stylesheet string) error {
	doc := m.md.Parser().Parse(text.NewReader(source))

	var body bytes.Buffer
	if err := m.md.Renderer().Render(&body, source, doc); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}

	title := firstHeading(doc, source)
	if title == "" {
		title = m.TitleFromPath(relPath)
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<title>" + templ.EscapeString(title) + "</title>\n")
	if stylesheet != "" {
		b.WriteString("<link rel=\"stylesheet\" href=\"" + templ.EscapeString(stylesheet) + "\">\n")
	}
	b.WriteString("</head>\n<body>\n<main>\n")
	b.Write(body.Bytes())
	b.WriteString("</main>\n</body>\n</html>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// TitleFromPath title-cases the base name of relPath, treating dashes and
// underscores as spaces.
func (m *MarkdownRenderer) TitleFromPath(relPath string) string {
	base := strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))
	if base == "index" {
		dir := path.Dir(relPath)
		if dir == "." {
			return "Home"
		}
		base = path.Base(dir)
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return m.title.String(base)
}

func firstHeading(doc ast.Node, source []byte) string {
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			title = strings.TrimSpace(nodeText(heading, source))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(nodeText(c, source))
		}
	}
	return b.String()
}
