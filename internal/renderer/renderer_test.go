package renderer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/types"
	"github.com/conneroisu/archipelago/pkg/island"
	"github.com/conneroisu/archipelago/pkg/site"
)

func staticHTML(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

type failingFormatter struct{}

func (failingFormatter) Format(string) (string, error) {
	return "", errors.New("formatter exploded")
}

func TestRender(t *testing.T) {
	t.Run("buffers output", func(t *testing.T) {
		out, err := Render(context.Background(), staticHTML("<p>hi</p>"))
		require.NoError(t, err)
		assert.Equal(t, "<p>hi</p>", out)
	})

	t.Run("returned error", func(t *testing.T) {
		_, err := Render(context.Background(), templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, _ = io.WriteString(w, "<p>partial")
			return errors.New("stream failed")
		}))
		assert.EqualError(t, err, "stream failed")
	})

	t.Run("panic", func(t *testing.T) {
		out, err := Render(context.Background(), templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			panic("boom")
		}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Empty(t, out)
	})

	t.Run("nil component", func(t *testing.T) {
		_, err := Render(context.Background(), nil)
		assert.Error(t, err)
	})
}

func newRenderer(t *testing.T, s *site.Site, files map[string]string, opts Options) *PageRenderer {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return NewPageRenderer(fs, s, nil, opts)
}

func TestRenderPageScopesIslands(t *testing.T) {
	s := site.New().
		MustRegister("blog/post", staticHTML(`<main>`)).
		MustRegister("index", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			if err := island.New("Counter", staticHTML("<button>0</button>"), map[string]any{"start": 0}).Render(ctx, w); err != nil {
				return err
			}
			return island.New("Counter", staticHTML("<button>5</button>"), map[string]any{"start": 5}).Render(ctx, w)
		}))

	r := newRenderer(t, s, nil, Options{})
	counter := &island.Counter{}

	page, warning, err := r.RenderPage(context.Background(), types.NewPageSource("src/pages", "index.templ"), counter)
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, "index.html", page.OutputPath)
	assert.Contains(t, page.Markup, `id="island-1"`)
	assert.Contains(t, page.Markup, `id="island-2"`)
	assert.Contains(t, page.Markup, `src="islandRender.js"`)
	assert.False(t, page.Formatted)
	assert.Equal(t, 2, counter.Value())
}

func TestRenderPageNestedScriptSrc(t *testing.T) {
	s := site.New().MustRegister("blog/post", island.New("Logo", nil, nil))

	r := newRenderer(t, s, nil, Options{ScriptName: "islandRender.js"})
	page, _, err := r.RenderPage(context.Background(), types.NewPageSource("src/pages", "blog/post.go"), &island.Counter{})
	require.NoError(t, err)
	assert.Equal(t, "blog/post.html", page.OutputPath)
	assert.Contains(t, page.Markup, `src="../islandRender.js"`)
}

func TestRenderPageFailures(t *testing.T) {
	s := site.New().MustRegister("broken", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return errors.New("template error")
	}))
	r := newRenderer(t, s, nil, Options{})

	_, _, err := r.RenderPage(context.Background(), types.NewPageSource("src/pages", "broken.templ"), &island.Counter{})
	require.Error(t, err)
	assert.True(t, builderrors.IsKind(err, builderrors.KindRender))
	assert.True(t, builderrors.IsFatal(err))

	_, _, err = r.RenderPage(context.Background(), types.NewPageSource("src/pages", "missing.templ"), &island.Counter{})
	require.Error(t, err)
	assert.True(t, builderrors.IsKind(err, builderrors.KindValidation))
}

func TestResolveAll(t *testing.T) {
	s := site.New().MustRegister("index", staticHTML("<p>"))
	r := newRenderer(t, s, nil, Options{})

	pages := []*types.PageSource{
		types.NewPageSource("src/pages", "index.templ"),
		types.NewPageSource("src/pages", "about.go"),
		types.NewPageSource("src/pages", "docs/guide.md"),
		types.NewPageSource("src/pages", "blog/post.templ"),
	}

	err := r.ResolveAll(pages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "about.go")
	assert.Contains(t, err.Error(), "blog/post.templ")
	assert.NotContains(t, err.Error(), "guide.md")

	assert.NoError(t, r.ResolveAll(pages[:1]))
}

func TestRenderPageFormatting(t *testing.T) {
	s := site.New().MustRegister("index", staticHTML(`<div><p>one</p><p>two</p></div>`))

	t.Run("formatted", func(t *testing.T) {
		r := newRenderer(t, s, nil, Options{Format: true})
		page, warning, err := r.RenderPage(context.Background(), types.NewPageSource("src/pages", "index.templ"), &island.Counter{})
		require.NoError(t, err)
		assert.Nil(t, warning)
		assert.True(t, page.Formatted)
		assert.Equal(t, "<div>\n  <p>one</p>\n  <p>two</p>\n</div>\n", page.Markup)
	})

	t.Run("formatter failure keeps raw markup", func(t *testing.T) {
		r := newRenderer(t, s, nil, Options{Format: true})
		r.SetFormatter(failingFormatter{})

		page, warning, err := r.RenderPage(context.Background(), types.NewPageSource("src/pages", "index.templ"), &island.Counter{})
		require.NoError(t, err)
		require.NotNil(t, warning)
		assert.True(t, builderrors.IsKind(warning, builderrors.KindFormatting))
		assert.Equal(t, "index.templ", warning.FilePath)
		assert.False(t, page.Formatted)
		assert.Equal(t, `<div><p>one</p><p>two</p></div>`, page.Markup)
	})
}

func TestRenderMarkdownPage(t *testing.T) {
	r := newRenderer(t, site.New(), map[string]string{
		"src/pages/docs/getting-started.md": "Intro text with **bold**.\n\n## Install\n",
		"src/pages/about.md":                "# About *us*\n\nHello.",
	}, Options{Stylesheet: "styles.css"})

	page, _, err := r.RenderPage(context.Background(), types.NewPageSource("src/pages", "about.md"), &island.Counter{})
	require.NoError(t, err)
	assert.Contains(t, page.Markup, "<title>About us</title>")
	assert.Contains(t, page.Markup, `<link rel="stylesheet" href="styles.css">`)
	assert.Contains(t, page.Markup, "<p>Hello.</p>")

	page, _, err = r.RenderPage(context.Background(), types.NewPageSource("src/pages", "docs/getting-started.md"), &island.Counter{})
	require.NoError(t, err)
	assert.Contains(t, page.Markup, "<title>Install</title>")
	assert.Contains(t, page.Markup, `href="../styles.css"`)
	assert.Contains(t, page.Markup, "<strong>bold</strong>")

	_, _, err = r.RenderPage(context.Background(), types.NewPageSource("src/pages", "gone.md"), &island.Counter{})
	assert.True(t, builderrors.IsKind(err, builderrors.KindRender))
}

func TestTitleFromPath(t *testing.T) {
	m := NewMarkdownRenderer(afero.NewMemMapFs())

	tests := []struct {
		in   string
		want string
	}{
		{"getting-started.md", "Getting Started"},
		{"docs/api_reference.md", "Api Reference"},
		{"index.md", "Home"},
		{"blog/index.md", "Blog"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, m.TitleFromPath(tt.in))
		})
	}
}

func TestScriptSrc(t *testing.T) {
	assert.Equal(t, "islandRender.js", ScriptSrc("index.html", "islandRender.js"))
	assert.Equal(t, "../islandRender.js", ScriptSrc("blog/post.html", "islandRender.js"))
	assert.Equal(t, "../../x.js", ScriptSrc("a/b/c.html", "x.js"))
	assert.Equal(t, "", ScriptSrc("index.html", ""))
}

func TestFormat(t *testing.T) {
	t.Run("document", func(t *testing.T) {
		res := Format(`<!DOCTYPE html><html><head><title>T</title></head><body><main><h1>Hi</h1><p>a <b>b</b></p></main></body></html>`)
		require.True(t, res.Formatted)
		assert.Nil(t, res.Warning)
		assert.Equal(t, strings.Join([]string{
			"<!DOCTYPE html>",
			"<html>",
			"  <head>",
			"    <title>T</title>",
			"  </head>",
			"  <body>",
			"    <main>",
			"      <h1>Hi</h1>",
			"      <p>a <b>b</b></p>",
			"    </main>",
			"  </body>",
			"</html>",
			"",
		}, "\n"), res.Markup)
	})

	t.Run("island markers survive", func(t *testing.T) {
		in := `<section><div id="island-1" data-island="Counter" data-props="{&#34;start&#34;:1}"><button>1</button></div><script type="module" src="islandRender.js" defer></script></section>`
		res := Format(in)
		require.True(t, res.Formatted)
		assert.Contains(t, res.Markup, `data-island="Counter"`)
		assert.Contains(t, res.Markup, `data-props="{&#34;start&#34;:1}"`)
		assert.Contains(t, res.Markup, `<script type="module" src="islandRender.js" defer=""></script>`)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := Format(`<div><ul><li>a</li><li>b</li></ul></div>`).Markup
		twice := Format(once).Markup
		assert.Equal(t, once, twice)
	})

	t.Run("inline siblings stay adjacent", func(t *testing.T) {
		res := Format(`<div><p>a</p><span>x</span>y<b>z</b></div>`)
		require.True(t, res.Formatted)
		assert.Equal(t, strings.Join([]string{
			"<div>",
			"  <p>a</p>",
			"  <span>x</span>y<b>z</b>",
			"</div>",
			"",
		}, "\n"), res.Markup)
		assert.Equal(t, res.Markup, Format(res.Markup).Markup)
	})

	t.Run("text around block children", func(t *testing.T) {
		res := Format(`<div>Total: <em>3</em> items<ul><li>a</li></ul>done</div>`)
		require.True(t, res.Formatted)
		assert.Contains(t, res.Markup, "  Total: <em>3</em> items\n")
		assert.Contains(t, res.Markup, "  done\n")
	})

	t.Run("preformatted kept", func(t *testing.T) {
		res := Format("<div><pre>  keep\n   this</pre></div>")
		assert.Contains(t, res.Markup, "<pre>  keep\n   this</pre>")
	})
}

func TestFormatMarkupNilFormatter(t *testing.T) {
	res := FormatMarkup(nil, "<p>")
	assert.Equal(t, "<p>", res.Markup)
	assert.False(t, res.Formatted)
	assert.Nil(t, res.Warning)
}
