package build

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/a-h/templ"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/archipelago/internal/config"
	"github.com/conneroisu/archipelago/pkg/island"
	"github.com/conneroisu/archipelago/pkg/site"
)

type toolCall struct {
	Name string
	Args []string
}

// fakeRunner stands in for esbuild and tailwindcss. It writes a stub of the
// expected output file so later stages see the artifacts.
type fakeRunner struct {
	fs    afero.Fs
	fail  map[string]error
	mu    sync.Mutex
	calls []toolCall
}

func newFakeRunner(fs afero.Fs) *fakeRunner {
	return &fakeRunner{fs: fs, fail: map[string]error{}}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, toolCall{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if err := f.fail[name]; err != nil {
		return []byte("tool output"), err
	}

	switch name {
	case "esbuild":
		entry, _ := afero.ReadFile(f.fs, args[0])
		for _, a := range args {
			if out, ok := strings.CutPrefix(a, "--outfile="); ok {
				return nil, afero.WriteFile(f.fs, out, append([]byte("/* bundled */\n"), entry...), 0o644)
			}
		}
	case "tailwindcss":
		for i, a := range args {
			if a == "-o" && i+1 < len(args) {
				return nil, afero.WriteFile(f.fs, args[i+1], []byte("/* css */\n"), 0o644)
			}
		}
	}
	return nil, nil
}

func (f *fakeRunner) Calls(name string) []toolCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []toolCall
	for _, c := range f.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func staticHTML(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

// page renders its parts inside a main element.
func page(parts ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<main>"); err != nil {
			return err
		}
		for _, p := range parts {
			if err := p.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</main>")
		return err
	})
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	return string(data)
}

func exists(fs afero.Fs, name string) bool {
	ok, _ := afero.Exists(fs, name)
	return ok
}

// counterLogoSite has one page per island kind plus a static page.
func counterLogoSite() *site.Site {
	counter := func(start int) templ.Component {
		return island.New("Counter", staticHTML("<button>0</button>"), map[string]any{"start": start})
	}
	return site.New().
		MustRegister("index", page(staticHTML("<h1>Home</h1>"), counter(0))).
		MustRegister("about", page(island.New("Logo", nil, nil), counter(5))).
		MustRegister("blog/post", page(staticHTML("<p>No islands here</p>")))
}

var counterLogoFiles = map[string]string{
	"src/pages/index.templ":           "package pages",
	"src/pages/about.templ":           "package pages",
	"src/pages/blog/post.go":          "package blog",
	"src/components/Counter.tsx":      "export function Counter({ start }) { return null }\n",
	"src/components/Logo.jsx":         "export default function Logo() { return null }\n",
	"src/components/Unused.tsx":       "export const Unused = () => null;\n",
	"src/styles/globals.css":          "@tailwind base;\n",
	"public/favicon.ico":              "icon",
	"public/img/logo.svg":             "<svg/>",
	"src/components/Counter.test.tsx": "test('x', () => {})\n",
}

func newTestPipeline(t *testing.T, s *site.Site, files map[string]string) (*Pipeline, afero.Fs, *fakeRunner) {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, files)
	runner := newFakeRunner(fs)
	p := NewPipeline(config.Default(), s, WithFs(fs), WithRunner(runner))
	return p, fs, runner
}
