package scanner

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func TestScanReturnsSortedRelativePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/pages/index.templ":        "",
		"src/pages/blog/post.md":       "# Post",
		"src/pages/about.go":           "package pages",
		"src/pages/.draft.md":          "",
		"src/pages/.cache/x.templ":     "",
		"src/pages/node_modules/a.js":  "",
		"src/pages/deep/a/b/c/d.templ": "",
	})

	files, err := NewFileScanner(fs).Scan("src/pages")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"about.go",
		"blog/post.md",
		"deep/a/b/c/d.templ",
		"index.templ",
	}, files)
}

func TestScanMissingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()

	files, err := NewFileScanner(fs).Scan("src/pages")
	require.Error(t, err)
	assert.Nil(t, files)
	assert.True(t, builderrors.IsKind(err, builderrors.KindFileSystem))
	assert.True(t, builderrors.IsFatal(err))
}

func TestScanRootIsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"src/pages": "not a dir"})

	_, err := NewFileScanner(fs).Scan("src/pages")
	assert.True(t, builderrors.IsKind(err, builderrors.KindFileSystem))
}

func TestScanOptional(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileScanner(fs)

	files, err := s.ScanOptional("src/components")
	require.NoError(t, err)
	assert.Empty(t, files)

	writeFiles(t, fs, map[string]string{"src/components/Counter.tsx": ""})
	files, err = s.ScanOptional("src/components")
	require.NoError(t, err)
	assert.Equal(t, []string{"Counter.tsx"}, files)
}

func TestDirExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("public/img", 0o755))
	writeFiles(t, fs, map[string]string{"public/robots.txt": ""})

	tests := []struct {
		dir  string
		want bool
	}{
		{"public", true},
		{"public/img", true},
		{"public/robots.txt", false},
		{"missing", false},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			got, err := DirExists(fs, tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterComponentFiles(t *testing.T) {
	in := []string{
		"Counter.tsx",
		"Counter.test.tsx",
		"Logo.jsx",
		"forms/Input.ts",
		"forms/Input.spec.ts",
		"types.d.ts",
		"util.js",
		"README.md",
		"styles.css",
		"widget_test.js",
	}

	assert.Equal(t, []string{
		"Counter.tsx",
		"Logo.jsx",
		"forms/Input.ts",
		"util.js",
	}, FilterComponentFiles(in))
}

func TestFilterPageFiles(t *testing.T) {
	in := []string{
		"index.templ",
		"index_templ.go",
		"about.go",
		"about_test.go",
		"blog/post.md",
		"notes.txt",
	}

	assert.Equal(t, []string{
		"index.templ",
		"about.go",
		"blog/post.md",
	}, FilterPageFiles(in))
}

func TestComponentName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Counter.tsx", "Counter"},
		{"forms/Input.ts", "Input"},
		{"a/b/Logo.jsx", "Logo"},
		{"my-widget.js", "my-widget"},
		{"noext", "noext"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ComponentName(tt.in))
		})
	}
}

func TestTrimExtension(t *testing.T) {
	assert.Equal(t, "blog/post", TrimExtension("blog/post.md"))
	assert.Equal(t, "index", TrimExtension("index.templ"))
}
