// Package types provides the data model shared by the build pipeline packages.
// Keeping these definitions here avoids import cycles between the scanner,
// registry, renderer and build packages.
package types

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// PageKind tells the renderer how a page source is turned into markup.
type PageKind string

const (
	// PageKindComponent pages are Go or templ sources whose component is
	// registered with the site at compile time.
	PageKindComponent PageKind = "component"
	// PageKindMarkdown pages are rendered straight from the source file.
	PageKindMarkdown PageKind = "markdown"
)

// PageSource describes one page found under the pages root. It is created by
// the scanner and never modified while a build runs.
type PageSource struct {
	// ID is the relative path without extension, slash separated ("blog/post").
	ID string
	// RelPath is the source path relative to the pages root.
	RelPath string
	// AbsPath is the source path joined with the pages root. It is absolute
	// when the root is.
	AbsPath string
	// OutputPath is relative to the output root with the extension rewritten
	// to .html and the directory structure preserved.
	OutputPath string
	// Kind selects the rendering strategy.
	Kind PageKind
}

// NewPageSource describes the page at rel, a slash path below root.
func NewPageSource(root, rel string) *PageSource {
	id := strings.TrimSuffix(rel, path.Ext(rel))
	kind := PageKindComponent
	if path.Ext(rel) == ".md" {
		kind = PageKindMarkdown
	}
	return &PageSource{
		ID:         id,
		RelPath:    rel,
		AbsPath:    filepath.Join(root, filepath.FromSlash(rel)),
		OutputPath: id + ".html",
		Kind:       kind,
	}
}

// RenderedPage holds the in-memory result of rendering one page.
type RenderedPage struct {
	Source     *PageSource
	Markup     string
	OutputPath string
	// Formatted is false when pretty-printing failed and Markup is the raw
	// renderer output.
	Formatted bool
}

// IslandReference is one island marker embedded in rendered markup.
type IslandReference struct {
	Component  string
	InstanceID int
	Props      map[string]any
}

// ExportKind records how a client component module exposes its component.
type ExportKind string

const (
	ExportNone    ExportKind = ""
	ExportNamed   ExportKind = "named"
	ExportDefault ExportKind = "default"
)

// ComponentCatalogEntry describes one client component module under the
// components root.
type ComponentCatalogEntry struct {
	// ID is derived from the file base name and used as the island identifier.
	ID string
	// RelPath is relative to the components root, slash separated.
	RelPath string
	// AbsPath is the module path handed to the external bundler, joined with
	// the components root.
	AbsPath string
	// Export is how the module exposes ID.
	Export   ExportKind
	Valid    bool
	Errors   []string
	Warnings []string
	// Collision is set when another module in the tree has the same ID.
	Collision bool
}

// UsedComponentSet maps component identifiers to the number of pages that
// reference them.
type UsedComponentSet map[string]int

// NewUsedComponentSet builds a set where every id has been seen once.
func NewUsedComponentSet(ids ...string) UsedComponentSet {
	set := make(UsedComponentSet, len(ids))
	for _, id := range ids {
		set[id]++
	}
	return set
}

// Has reports whether id is referenced.
func (s UsedComponentSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the identifiers in lexicographic order.
func (s UsedComponentSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ComponentUsage is one row of a sorted UsedComponentSet.
type ComponentUsage struct {
	ID    string `json:"id" yaml:"id"`
	Pages int    `json:"pages" yaml:"pages"`
}

// Sorted returns usage rows ordered by identifier. Equal counts get no
// special treatment.
func (s UsedComponentSet) Sorted() []ComponentUsage {
	rows := make([]ComponentUsage, 0, len(s))
	for _, id := range s.IDs() {
		rows = append(rows, ComponentUsage{ID: id, Pages: s[id]})
	}
	return rows
}

// FileClass partitions the files of the output directory.
type FileClass string

const (
	FileClassPage      FileClass = "page"
	FileClassAsset     FileClass = "asset"
	FileClassGenerated FileClass = "generated"
	FileClassForeign   FileClass = "foreign"
)
