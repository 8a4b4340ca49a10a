package build

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/archipelago/internal/types"
)

func newTestReconciler(fs afero.Fs) *Reconciler {
	return NewReconciler(fs, nil, "public", "islandRender.js", "islandRender.js.map", StylesheetName)
}

func TestCleanupOrphanedGenerated(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/pages/index.templ":    "",
		"src/pages/docs/guide.md":  "",
		"src/pages/blog/keep.go":   "",
		"public/legal.html":        "<p>legal</p>",
		"dist/index.html":          "<p>index</p>",
		"dist/docs/guide.html":     "<p>guide</p>",
		"dist/blog/keep.html":      "<p>keep</p>",
		"dist/blog/gone.html":      "<p>gone</p>",
		"dist/old/deep/stale.html": "<p>stale</p>",
		"dist/legal.html":          "<p>legal</p>",
		"dist/islandRender.js":     "bundle",
		"dist/robots.txt":          "User-agent: *",
		"dist/notes/readme.txt":    "foreign",
		"dist/notes/orphan.html":   "<p>orphan</p>",
	})

	removed, err := newTestReconciler(fs).CleanupOrphanedGenerated("dist", "src/pages")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	for _, gone := range []string{"dist/blog/gone.html", "dist/old/deep/stale.html", "dist/notes/orphan.html"} {
		assert.False(t, exists(fs, gone), gone)
	}
	for _, kept := range []string{
		"dist/index.html", "dist/docs/guide.html", "dist/blog/keep.html",
		"dist/legal.html", "dist/islandRender.js", "dist/robots.txt", "dist/notes/readme.txt",
	} {
		assert.True(t, exists(fs, kept), kept)
	}

	assert.False(t, exists(fs, "dist/old"), "emptied directories are pruned")
	assert.True(t, exists(fs, "dist/blog"))
	assert.True(t, exists(fs, "dist/notes"))
	assert.True(t, exists(fs, "dist"))
}

func TestCleanupLeavesUntouchedEmptyDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("dist/empty", 0o755))
	writeFiles(t, fs, map[string]string{"src/pages/index.templ": ""})

	removed, err := newTestReconciler(fs).CleanupOrphanedGenerated("dist", "src/pages")
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.True(t, exists(fs, "dist/empty"))
}

func TestCleanupMissingOutputDir(t *testing.T) {
	removed, err := newTestReconciler(afero.NewMemMapFs()).CleanupOrphanedGenerated("dist", "src/pages")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCopyStaticAssets(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"public/favicon.ico":          "icon",
		"public/img/logo.svg":         "<svg/>",
		"public/.well-known/security": "contact",
		"public/styles.css":           "shadow",
		"dist/img/logo.svg":           "old",
		"dist/styles.css":             "generated",
	})

	copied, err := newTestReconciler(fs).CopyStaticAssets("public", "dist")
	require.NoError(t, err)
	assert.Equal(t, 3, copied)

	assert.Equal(t, "icon", readFile(t, fs, "dist/favicon.ico"))
	assert.Equal(t, "<svg/>", readFile(t, fs, "dist/img/logo.svg"), "assets overwrite unconditionally")
	assert.Equal(t, "contact", readFile(t, fs, "dist/.well-known/security"))
	assert.Equal(t, "generated", readFile(t, fs, "dist/styles.css"), "generated names are never replaced")

	again, err := newTestReconciler(fs).CopyStaticAssets("public", "dist")
	require.NoError(t, err)
	assert.Equal(t, copied, again)
}

func TestCopyStaticAssetsMissingRoot(t *testing.T) {
	copied, err := newTestReconciler(afero.NewMemMapFs()).CopyStaticAssets("public", "dist")
	require.NoError(t, err)
	assert.Zero(t, copied)
}

func TestClassify(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/pages/index.templ": "",
		"public/img/logo.svg":   "",
	})
	r := newTestReconciler(fs)

	tests := []struct {
		rel  string
		want types.FileClass
	}{
		{"index.html", types.FileClassPage},
		{"img/logo.svg", types.FileClassAsset},
		{"islandRender.js", types.FileClassGenerated},
		{"styles.css", types.FileClassGenerated},
		{"robots.txt", types.FileClassForeign},
		{"about.html", types.FileClassForeign},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Classify(tt.rel, "src/pages"))
		})
	}
}
