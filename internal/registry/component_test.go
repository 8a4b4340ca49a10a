package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/types"
)

func memFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestBuild(t *testing.T) {
	fs := memFS(t, map[string]string{
		"src/components/Counter.tsx":      "export function Counter() { return null }",
		"src/components/Logo.jsx":         "export default function () { return null }",
		"src/components/Counter.test.tsx": "test('x', () => {})",
		"src/components/types.d.ts":       "export type X = string",
		"src/components/README.md":        "# docs",
	})

	catalog, err := Build(context.Background(), fs, "src/components", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Counter", "Logo"}, catalog.IDs())
	assert.Equal(t, 2, catalog.Count())
	assert.Equal(t, "src/components", catalog.Root())

	counter, ok := catalog.Get("Counter")
	require.True(t, ok)
	assert.Equal(t, "Counter.tsx", counter.RelPath)
	assert.Equal(t, types.ExportNamed, counter.Export)
	assert.True(t, counter.Valid)
	assert.Equal(t, filepath.FromSlash("src/components/Counter.tsx"), counter.AbsPath)

	logo, ok := catalog.Get("Logo")
	require.True(t, ok)
	assert.Equal(t, types.ExportDefault, logo.Export)
	assert.Len(t, logo.Warnings, 1)

	_, ok = catalog.Get("Missing")
	assert.False(t, ok)
}

func TestBuildAbsentRoot(t *testing.T) {
	catalog, err := Build(context.Background(), afero.NewMemMapFs(), "src/components", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.Count())
	assert.Empty(t, catalog.Entries())
}

func TestBuildInvalidComponent(t *testing.T) {
	fs := memFS(t, map[string]string{
		"src/components/Counter.tsx": "export function Counter() { return null }",
		"src/components/Broken.tsx":  "export const Broken = 1",
	})

	catalog, err := Build(context.Background(), fs, "src/components", nil)
	require.Error(t, err)
	assert.True(t, builderrors.IsKind(err, builderrors.KindValidation))

	require.NotNil(t, catalog)
	broken, ok := catalog.Get("Broken")
	require.True(t, ok)
	assert.False(t, broken.Valid)
	assert.NotEmpty(t, broken.Errors)
}

func TestBuildCollisionFirstPathWins(t *testing.T) {
	fs := memFS(t, map[string]string{
		"src/components/widgets/Button.tsx": "export function Button() { return null }",
		"src/components/Button.jsx":         "export function Button() { return null }",
		"src/components/forms/Button.tsx":   "export function Button() { return null }",
	})

	catalog, err := Build(context.Background(), fs, "src/components", nil)
	require.NoError(t, err)

	owner, ok := catalog.Get("Button")
	require.True(t, ok)
	assert.Equal(t, "Button.jsx", owner.RelPath)
	assert.True(t, owner.Collision)

	collisions := catalog.Collisions()
	require.Len(t, collisions, 1)
	assert.Equal(t, "Button", collisions[0].Name)
	assert.Equal(t, []string{"Button.jsx", "forms/Button.tsx", "widgets/Button.tsx"}, collisions[0].Files)

	all := catalog.All()
	require.Len(t, all, 3)
	for _, e := range all {
		assert.True(t, e.Collision)
	}
	assert.Len(t, catalog.Entries(), 1)
}

func TestRegisterOrderIndependent(t *testing.T) {
	a := &types.ComponentCatalogEntry{ID: "Card", RelPath: "a/Card.tsx"}
	b := &types.ComponentCatalogEntry{ID: "Card", RelPath: "b/Card.tsx"}

	c1 := NewComponentCatalog("src/components")
	c1.Register(a)
	c1.Register(b)

	a2, b2 := *a, *b
	c2 := NewComponentCatalog("src/components")
	c2.Register(&b2)
	c2.Register(&a2)

	e1, _ := c1.Get("Card")
	e2, _ := c2.Get("Card")
	assert.Equal(t, "a/Card.tsx", e1.RelPath)
	assert.Equal(t, "a/Card.tsx", e2.RelPath)
	assert.Equal(t, c1.Collisions(), c2.Collisions())
}

func TestImportPath(t *testing.T) {
	entry := &types.ComponentCatalogEntry{AbsPath: filepath.FromSlash("/work/src/components/Counter.tsx")}

	assert.Equal(t, "../src/components/Counter.tsx", ImportPath(filepath.FromSlash("/work/.archipelago"), entry))
	assert.Equal(t, "./Counter.tsx", ImportPath(filepath.FromSlash("/work/src/components"), entry))
}
