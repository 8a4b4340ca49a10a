package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/conneroisu/archipelago/internal/config"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/watcher"
)

// watchDebounce is how long the source tree must stay quiet before a rebuild.
const watchDebounce = 300 * time.Millisecond

// watchRoots returns the directories whose changes affect a build.
func watchRoots(cfg *config.Config) []string {
	roots := []string{cfg.Paths.Pages, cfg.Paths.Components, cfg.Paths.Assets}
	if cfg.CSS.Input != "" {
		roots = append(roots, filepath.Dir(cfg.CSS.Input))
	}

	seen := make(map[string]bool, len(roots))
	unique := roots[:0]
	for _, r := range roots {
		r = filepath.Clean(r)
		if r == "." || seen[r] {
			continue
		}
		seen[r] = true
		unique = append(unique, r)
	}
	return unique
}

// newSourceWatcher creates a watcher over the build inputs that calls rebuild
// with the changed paths of each batch.
func newSourceWatcher(cfg *config.Config, logger logging.Logger, rebuild func(ctx context.Context, changed []string)) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(watchDebounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoTestFilter)
	fw.AddFilter(watcher.ExcludeDirFilter(cfg.OutputDir, cfg.CacheDir))
	fw.AddFilter(watcher.SourceFilter(cfg.Paths.Assets))

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		changed := make([]string, 0, len(events))
		for _, e := range events {
			changed = append(changed, e.Path)
		}
		rebuild(ctx, changed)
		return nil
	})

	for _, root := range watchRoots(cfg) {
		if err := fw.AddRecursive(root); err != nil {
			logger.Warn(context.Background(), err, "Failed to watch path", "path", root)
		}
	}

	return fw, nil
}
