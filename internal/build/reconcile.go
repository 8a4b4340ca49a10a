package build

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/scanner"
	"github.com/conneroisu/archipelago/internal/types"
)

// Reconciler keeps the output directory in step with the sources. It only
// ever deletes generated pages whose source is gone; asset mirrors,
// build-generated files and anything it does not recognise are left alone.
type Reconciler struct {
	fs        afero.Fs
	logger    logging.Logger
	assetDir  string
	generated map[string]bool
}

// NewReconciler creates a reconciler. assetDir is the static asset root and
// generated lists the build-generated names at the output root.
func NewReconciler(fs afero.Fs, logger logging.Logger, assetDir string, generated ...string) *Reconciler {
	if logger == nil {
		logger = logging.Nop()
	}
	names := make(map[string]bool, len(generated))
	for _, g := range generated {
		names[g] = true
	}
	return &Reconciler{
		fs:        fs,
		logger:    logger.WithComponent("reconciler"),
		assetDir:  assetDir,
		generated: names,
	}
}

// Classify places rel, a slash path below the output root, in one of the
// output file classes.
func (r *Reconciler) Classify(rel, pageSourceDir string) types.FileClass {
	switch {
	case r.generated[rel]:
		return types.FileClassGenerated
	case r.isMirrored(rel):
		return types.FileClassAsset
	case path.Ext(rel) != ".html":
		return types.FileClassForeign
	case r.hasPageSource(rel, pageSourceDir):
		return types.FileClassPage
	default:
		return types.FileClassForeign
	}
}

// CleanupOrphanedGenerated deletes every .html file of outputDir whose page
// source no longer exists and prunes the directories that leaves empty. It
// returns the number of files removed. A missing output directory is empty.
func (r *Reconciler) CleanupOrphanedGenerated(outputDir, pageSourceDir string) (int, error) {
	exists, err := scanner.DirExists(r.fs, outputDir)
	if err != nil || !exists {
		return 0, err
	}

	files, err := r.walkFiles(outputDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	touched := map[string]bool{}
	for _, rel := range files {
		if path.Ext(rel) != ".html" || r.generated[rel] || r.isMirrored(rel) {
			continue
		}
		if r.hasPageSource(rel, pageSourceDir) {
			continue
		}

		abs := filepath.Join(outputDir, filepath.FromSlash(rel))
		if err := r.fs.Remove(abs); err != nil {
			return removed, builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to remove orphaned page", err).WithFile(abs)
		}
		removed++
		touched[path.Dir(rel)] = true
		r.logger.Info(context.Background(), "Removed orphaned page", "path", rel)
	}

	r.pruneEmptyDirs(outputDir, touched)
	return removed, nil
}

// hasPageSource reports whether any page extension yields an existing source
// for the generated page rel.
func (r *Reconciler) hasPageSource(rel, pageSourceDir string) bool {
	stem := strings.TrimSuffix(rel, path.Ext(rel))
	for _, ext := range scanner.PageExtensions {
		candidate := filepath.Join(pageSourceDir, filepath.FromSlash(stem+ext))
		if ok, _ := afero.Exists(r.fs, candidate); ok {
			return true
		}
	}
	return false
}

func (r *Reconciler) isMirrored(rel string) bool {
	if r.assetDir == "" {
		return false
	}
	ok, _ := afero.Exists(r.fs, filepath.Join(r.assetDir, filepath.FromSlash(rel)))
	return ok
}

// pruneEmptyDirs removes the directories files were deleted from, and their
// parents, while they are empty. The output root itself is kept.
func (r *Reconciler) pruneEmptyDirs(outputDir string, touched map[string]bool) {
	dirs := make([]string, 0, len(touched))
	for d := range touched {
		if d != "." {
			dirs = append(dirs, d)
		}
	}
	// Deepest first so children go before their parents.
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], "/") > strings.Count(dirs[j], "/")
	})

	for _, d := range dirs {
		for d != "." && d != "/" {
			abs := filepath.Join(outputDir, filepath.FromSlash(d))
			empty, err := afero.IsEmpty(r.fs, abs)
			if err != nil || !empty {
				break
			}
			if err := r.fs.Remove(abs); err != nil {
				break
			}
			r.logger.Debug(context.Background(), "Pruned empty directory", "path", d)
			d = path.Dir(d)
		}
	}
}

// CopyStaticAssets mirrors every file below assetSourceDir into outputDir,
// overwriting unconditionally. An absent asset root copies nothing. Files
// that would replace a build-generated name are skipped.
func (r *Reconciler) CopyStaticAssets(assetSourceDir, outputDir string) (int, error) {
	exists, err := scanner.DirExists(r.fs, assetSourceDir)
	if err != nil || !exists {
		return 0, err
	}

	files, err := r.walkFiles(assetSourceDir)
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, rel := range files {
		if r.generated[rel] {
			r.logger.Warn(context.Background(), nil, "Static asset shadows a generated file, skipping", "path", rel)
			continue
		}
		src := filepath.Join(assetSourceDir, filepath.FromSlash(rel))
		dst := filepath.Join(outputDir, filepath.FromSlash(rel))
		if err := r.copyFile(src, dst); err != nil {
			return copied, err
		}
		copied++
	}

	r.logger.Debug(context.Background(), "Static assets copied", "count", copied, "from", assetSourceDir)
	return copied, nil
}

func (r *Reconciler) copyFile(src, dst string) error {
	in, err := r.fs.Open(src)
	if err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeReadFailed, "failed to open asset", err).WithFile(src)
	}
	defer in.Close()

	if err := r.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to create directory", err).WithFile(dst)
	}

	out, err := r.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to create asset", err).WithFile(dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to copy asset", err).WithFile(dst)
	}
	if err := out.Close(); err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to close asset", err).WithFile(dst)
	}
	return nil
}

// walkFiles lists every regular file below root as sorted slash paths,
// hidden entries included.
func (r *Reconciler) walkFiles(root string) ([]string, error) {
	var files []string
	err := afero.Walk(r.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
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
		return nil, builderrors.NewFileSystemError(builderrors.ErrCodeReadFailed, "failed to walk directory", err).WithFile(root)
	}
	sort.Strings(files)
	return files, nil
}
