// Package registry holds the catalog of client component modules found under
// the components root.
package registry

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/scanner"
	"github.com/conneroisu/archipelago/internal/types"
	"github.com/conneroisu/archipelago/internal/validation"
)

// ComponentCatalog maps island identifiers to client component modules.
// When several modules derive the same identifier the lexicographically
// first path owns the identifier; the others stay listed in All.
type ComponentCatalog struct {
	root       string
	components map[string]*types.ComponentCatalogEntry
	all        []*types.ComponentCatalogEntry
	collisions []validation.NamingCollision
	mutex      sync.RWMutex
}

// NewComponentCatalog creates an empty catalog rooted at root.
func NewComponentCatalog(root string) *ComponentCatalog {
	return &ComponentCatalog{
		root:       root,
		components: make(map[string]*types.ComponentCatalogEntry),
	}
}

// Build scans root, validates every module and returns the catalog. An absent
// root yields an empty catalog. When any module is invalid the catalog is
// still returned, together with the ValidationError naming every failing
// file.
func Build(ctx context.Context, fs afero.Fs, root string, logger logging.Logger) (*ComponentCatalog, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	log := logger.WithComponent("catalog")

	catalog := NewComponentCatalog(root)

	files, err := scanner.NewFileScanner(fs).ScanOptional(root)
	if err != nil {
		return nil, err
	}
	files = scanner.FilterComponentFiles(files)

	validator := validation.NewComponentValidator(fs, logger)
	results, verr := validator.ValidateAll(ctx, files, root)

	for _, r := range results {
		catalog.Register(&types.ComponentCatalogEntry{
			ID:       r.ComponentName,
			RelPath:  r.FilePath,
			AbsPath:  absPath(root, r.FilePath),
			Export:   r.Export,
			Valid:    r.IsValid,
			Errors:   r.Errors,
			Warnings: r.Warnings,
		})
	}

	for _, c := range catalog.Collisions() {
		log.Warn(ctx, nil, "Component naming collision", "name", c.Name, "files", c.Files, "using", c.Files[0])
	}

	log.Debug(ctx, "Catalog built", "components", catalog.Count(), "files", len(files))

	if verr != nil {
		return catalog, verr
	}
	return catalog, nil
}

func absPath(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Register adds an entry. The entry with the smallest relative path keeps the
// identifier; every entry sharing it is marked as colliding.
func (c *ComponentCatalog) Register(entry *types.ComponentCatalogEntry) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.all = append(c.all, entry)
	sort.Slice(c.all, func(i, j int) bool { return c.all[i].RelPath < c.all[j].RelPath })

	existing, exists := c.components[entry.ID]
	if !exists {
		c.components[entry.ID] = entry
		return
	}

	existing.Collision = true
	entry.Collision = true
	if entry.RelPath < existing.RelPath {
		c.components[entry.ID] = entry
	}

	c.collisions = nil
}

// Get retrieves the entry owning id.
func (c *ComponentCatalog) Get(id string) (*types.ComponentCatalogEntry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.components[id]
	return entry, exists
}

// IDs returns every identifier in lexicographic order.
func (c *ComponentCatalog) IDs() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ids := make([]string, 0, len(c.components))
	for id := range c.components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns the identifier owners ordered by identifier.
func (c *ComponentCatalog) Entries() []*types.ComponentCatalogEntry {
	ids := c.IDs()

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]*types.ComponentCatalogEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.components[id])
	}
	return out
}

// All returns every registered module, including collision losers, ordered
// by relative path.
func (c *ComponentCatalog) All() []*types.ComponentCatalogEntry {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]*types.ComponentCatalogEntry, len(c.all))
	copy(out, c.all)
	return out
}

// Collisions reports every identifier derived from more than one module.
func (c *ComponentCatalog) Collisions() []validation.NamingCollision {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.collisions == nil {
		files := make([]string, 0, len(c.all))
		for _, e := range c.all {
			files = append(files, e.RelPath)
		}
		c.collisions = validation.CheckNaming(files)
	}

	out := make([]validation.NamingCollision, len(c.collisions))
	copy(out, c.collisions)
	return out
}

// Count returns the number of distinct identifiers.
func (c *ComponentCatalog) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.components)
}

// Root is the components root the catalog was built from.
func (c *ComponentCatalog) Root() string {
	return c.root
}

// ImportPath returns the module path of entry relative to dir, as written in
// an ES module import.
func ImportPath(dir string, entry *types.ComponentCatalogEntry) string {
	rel, err := filepath.Rel(dir, entry.AbsPath)
	if err != nil {
		return filepath.ToSlash(entry.AbsPath)
	}
	rel = filepath.ToSlash(rel)
	if !path.IsAbs(rel) && rel[0] != '.' {
		rel = "./" + rel
	}
	return rel
}
