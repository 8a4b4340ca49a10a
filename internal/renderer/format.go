package renderer

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
)

// FormatResult is either formatted markup, or the raw markup together with
// the warning explaining why formatting was skipped.
type FormatResult struct {
	Markup    string
	Formatted bool
	Warning   *builderrors.BuildError
}

// Formatter pretty-prints markup.
type Formatter interface {
	Format(markup string) (string, error)
}

// FormatMarkup runs f and falls back to the raw markup on failure.
func FormatMarkup(f Formatter, markup string) FormatResult {
	if f == nil {
		return FormatResult{Markup: markup}
	}

	out, err := f.Format(markup)
	if err != nil {
		return FormatResult{
			Markup:  markup,
			Warning: builderrors.NewFormattingError(err),
		}
	}
	return FormatResult{Markup: out, Formatted: true}
}

// Format pretty-prints markup with HTMLFormatter.
func Format(markup string) FormatResult {
	return FormatMarkup(HTMLFormatter{}, markup)
}

// HTMLFormatter indents block structure and leaves inline content, raw text
// and preformatted elements as rendered.
type HTMLFormatter struct {
	// Indent defaults to two spaces.
	Indent string
}

// blockTags open a new indentation level when they contain block children.
var blockTags = map[atom.Atom]bool{
	atom.Html: true, atom.Head: true, atom.Body: true, atom.Main: true,
	atom.Div: true, atom.Section: true, atom.Article: true, atom.Aside: true,
	atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Ul: true,
	atom.Ol: true, atom.Li: true, atom.Table: true, atom.Thead: true,
	atom.Tbody: true, atom.Tfoot: true, atom.Tr: true, atom.Td: true,
	atom.Th: true, atom.Form: true, atom.Fieldset: true, atom.P: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Blockquote: true, atom.Figure: true, atom.Dl: true,
	atom.Dt: true, atom.Dd: true, atom.Hr: true, atom.Pre: true,
	atom.Meta: true, atom.Link: true, atom.Title: true, atom.Script: true,
	atom.Style: true, atom.Base: true, atom.Noscript: true, atom.Template: true,
}

// verbatimTags are rendered exactly as parsed.
var verbatimTags = map[atom.Atom]bool{
	atom.Pre: true, atom.Textarea: true, atom.Script: true, atom.Style: true,
}

// Format implements Formatter.
func (f HTMLFormatter) Format(markup string) (string, error) {
	indent := f.Indent
	if indent == "" {
		indent = "  "
	}

	p := &printer{indent: indent}

	if isDocument(markup) {
		doc, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			return "", fmt.Errorf("parsing document: %w", err)
		}
		if err := p.children(doc, 0); err != nil {
			return "", err
		}
		return p.buf.String(), nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return "", fmt.Errorf("parsing fragment: %w", err)
	}
	if err := p.sequence(nodes, 0); err != nil {
		return "", err
	}
	return p.buf.String(), nil
}

func isDocument(markup string) bool {
	head := strings.ToLower(strings.TrimSpace(markup))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

type printer struct {
	buf    bytes.Buffer
	indent string
}

func (p *printer) pad(depth int) {
	for i := 0; i < depth; i++ {
		p.buf.WriteString(p.indent)
	}
}

func (p *printer) children(n *html.Node, depth int) error {
	var nodes []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return p.sequence(nodes, depth)
}

// sequence prints sibling nodes. Consecutive text and inline elements form
// one run printed on a single line, so no whitespace is added between them.
func (p *printer) sequence(nodes []*html.Node, depth int) error {
	var run []*html.Node
	for _, n := range nodes {
		if isInline(n) {
			run = append(run, n)
			continue
		}
		if err := p.inline(run, depth); err != nil {
			return err
		}
		run = run[:0]
		if err := p.node(n, depth); err != nil {
			return err
		}
	}
	return p.inline(run, depth)
}

func (p *printer) inline(run []*html.Node, depth int) error {
	var tmp bytes.Buffer
	for _, n := range run {
		if n.Type == html.ErrorNode {
			return fmt.Errorf("unparseable markup near %q", n.Data)
		}
		if err := html.Render(&tmp, n); err != nil {
			return err
		}
	}

	line := strings.TrimSpace(tmp.String())
	if line == "" {
		return nil
	}
	p.pad(depth)
	p.buf.WriteString(line)
	p.buf.WriteByte('\n')
	return nil
}

func (p *printer) node(n *html.Node, depth int) error {
	switch n.Type {
	case html.DoctypeNode:
		p.buf.WriteString("<!DOCTYPE " + n.Data + ">\n")
		return nil
	case html.DocumentNode:
		return p.children(n, depth)
	case html.CommentNode:
		p.pad(depth)
		if err := html.Render(&p.buf, n); err != nil {
			return err
		}
		p.buf.WriteByte('\n')
		return nil
	case html.ElementNode:
		return p.element(n, depth)
	case html.ErrorNode:
		return fmt.Errorf("unparseable markup near %q", n.Data)
	default:
		return nil
	}
}

func (p *printer) element(n *html.Node, depth int) error {
	if verbatimTags[n.DataAtom] || !hasBlockChild(n) {
		p.pad(depth)
		if err := html.Render(&p.buf, n); err != nil {
			return err
		}
		p.buf.WriteByte('\n')
		return nil
	}

	p.pad(depth)
	p.openTag(n)
	p.buf.WriteByte('\n')
	if err := p.children(n, depth+1); err != nil {
		return err
	}
	p.pad(depth)
	p.buf.WriteString("</" + n.Data + ">\n")
	return nil
}

func (p *printer) openTag(n *html.Node) {
	// Render a childless shallow copy and drop its end tag.
	shallow := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace, Attr: n.Attr}
	var tmp bytes.Buffer
	_ = html.Render(&tmp, shallow)
	p.buf.WriteString(strings.TrimSuffix(tmp.String(), "</"+n.Data+">"))
}

func isInline(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.ElementNode:
		return !blockTags[n.DataAtom]
	default:
		return false
	}
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockTags[c.DataAtom] {
			return true
		}
		if c.Type == html.CommentNode {
			return true
		}
	}
	return false
}
