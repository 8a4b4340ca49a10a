//go:build property
// +build property

package scanner

import (
	"path"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
)

var nameGen = gen.OneConstOf(
	"Counter.tsx", "Logo.jsx", "index.templ", "about.go", "post.md",
	"Counter.test.tsx", "types.d.ts", "index_templ.go", "styles.css", "util.js",
)

var dirGen = gen.OneConstOf("", "blog", "forms", "a/b")

// TestScannerProperties tests invariant properties of the file scanner.
func TestScannerProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("scan output is sorted and stable", prop.ForAll(
		func(names []string, dirs []string) bool {
			fs := afero.NewMemMapFs()
			for i, name := range names {
				dir := ""
				if i < len(dirs) {
					dir = dirs[i]
				}
				if err := afero.WriteFile(fs, path.Join("root", dir, name), nil, 0o644); err != nil {
					return false
				}
			}
			_ = fs.MkdirAll("root", 0o755)

			s := NewFileScanner(fs)
			first, err1 := s.Scan("root")
			second, err2 := s.Scan("root")
			if err1 != nil || err2 != nil {
				return false
			}
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					return false
				}
			}
			return sort.StringsAreSorted(first)
		},
		gen.SliceOf(nameGen),
		gen.SliceOf(dirGen),
	))

	properties.Property("filtering is idempotent", prop.ForAll(
		func(names []string) bool {
			once := FilterComponentFiles(names)
			twice := FilterComponentFiles(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] || IsExcluded(once[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(nameGen),
	))

	properties.Property("page and component filters are disjoint", prop.ForAll(
		func(names []string) bool {
			pages := map[string]bool{}
			for _, p := range FilterPageFiles(names) {
				pages[p] = true
			}
			for _, c := range FilterComponentFiles(names) {
				if pages[c] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(nameGen),
	))

	properties.TestingRun(t)
}
