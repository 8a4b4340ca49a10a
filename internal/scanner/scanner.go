// Package scanner lists source files under the pages, components and assets
// roots.
//
// Scanning is a pure listing step: it walks a directory tree through an
// afero.Fs, returns slash-separated paths relative to the root in sorted
// order and leaves interpretation of the files to its callers. The filter
// helpers keep recognized source extensions and drop test, spec, declaration
// and generated files.
package scanner

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/afero"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
)

// ComponentExtensions are the client module extensions found under the
// components root.
var ComponentExtensions = []string{".tsx", ".ts", ".jsx", ".js"}

// PageExtensions are the page source extensions found under the pages root.
var PageExtensions = []string{".templ", ".go", ".md"}

// ExcludedMarkers are substrings that remove a file from consideration.
var ExcludedMarkers = []string{".test.", ".spec.", ".d.ts", "_test.", "_templ.go"}

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"node_modules": true,
}

// FileScanner walks directory trees on a filesystem.
type FileScanner struct {
	fs afero.Fs
}

// NewFileScanner creates a scanner over fs.
func NewFileScanner(fsys afero.Fs) *FileScanner {
	return &FileScanner{fs: fsys}
}

// Scan returns every regular file below root as a sorted list of
// slash-separated relative paths. Hidden entries and node_modules are
// skipped. An unreadable or missing root is a FileSystemError.
func (s *FileScanner) Scan(root string) ([]string, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, builderrors.NewFileSystemError(builderrors.ErrCodeDirNotFound,
			"failed to read directory "+root, err)
	}
	if !info.IsDir() {
		return nil, builderrors.NewFileSystemError(builderrors.ErrCodeDirNotFound,
			root+" is not a directory", nil)
	}

	var files []string
	err = afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if p != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if skippedDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, builderrors.NewFileSystemError(builderrors.ErrCodeReadFailed,
			"failed to read directory "+root, err)
	}

	sort.Strings(files)
	return files, nil
}

// ScanOptional behaves like Scan but treats a missing root as an empty tree.
func (s *FileScanner) ScanOptional(root string) ([]string, error) {
	exists, err := DirExists(s.fs, root)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return s.Scan(root)
}

// DirExists reports whether dir exists and is a directory. A permission
// error is returned as a FileSystemError.
func DirExists(fsys afero.Fs, dir string) (bool, error) {
	info, err := fsys.Stat(dir)
	switch {
	case err == nil:
		return info.IsDir(), nil
	case os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR):
		return false, nil
	default:
		return false, builderrors.NewFileSystemError(builderrors.ErrCodeReadFailed,
			"failed to stat "+dir, err)
	}
}

// HasExtension reports whether name ends in one of exts.
func HasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether name contains an excluded marker.
func IsExcluded(name string) bool {
	for _, marker := range ExcludedMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Filter keeps paths with a recognized extension whose base name carries no
// excluded marker.
func Filter(paths []string, exts []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		base := path.Base(p)
		if HasExtension(base, exts) && !IsExcluded(base) {
			out = append(out, p)
		}
	}
	return out
}

// FilterComponentFiles keeps client component modules.
func FilterComponentFiles(paths []string) []string {
	return Filter(paths, ComponentExtensions)
}

// FilterPageFiles keeps page sources.
func FilterPageFiles(paths []string) []string {
	return Filter(paths, PageExtensions)
}

// ComponentName derives the identifier of a file from its base name.
func ComponentName(file string) string {
	base := path.Base(filepath.ToSlash(file))
	return strings.TrimSuffix(base, path.Ext(base))
}

// TrimExtension removes the final extension from a slash path.
func TrimExtension(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}
