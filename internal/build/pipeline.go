package build

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/conneroisu/archipelago/internal/config"
	"github.com/conneroisu/archipelago/internal/discovery"
	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/metrics"
	"github.com/conneroisu/archipelago/internal/registry"
	"github.com/conneroisu/archipelago/internal/renderer"
	"github.com/conneroisu/archipelago/internal/scanner"
	"github.com/conneroisu/archipelago/internal/types"
	"github.com/conneroisu/archipelago/pkg/island"
	"github.com/conneroisu/archipelago/pkg/site"
)

// State is a build pipeline state.
type State string

const (
	StateIdle               State = "idle"
	StateScanningPages      State = "scanning_pages"
	StateRenderingPages     State = "rendering_pages"
	StateDiscoveringIslands State = "discovering_islands"
	StateBundlingHydration  State = "bundling_hydration"
	StateReconcilingOutput  State = "reconciling_output"
	StateFlushingPages      State = "flushing_pages"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// TransitionFunc observes pipeline state changes.
type TransitionFunc func(from, to State)

// Report summarizes a completed build.
type Report struct {
	BuildID string
	// Pages are the output paths of the rendered pages in scanner order.
	Pages []string
	// Used maps referenced island identifiers to the number of pages using them.
	Used types.UsedComponentSet
	// Bundled are the identifiers compiled into the hydration bundle.
	Bundled    []string
	Stylesheet bool
	Removed    int
	Copied     int
	// Written counts pages whose file changed.
	Written  int
	Warnings []*builderrors.BuildError
	Duration time.Duration
}

// Inventory is the in-memory result of scanning and rendering a site
// without writing anything.
type Inventory struct {
	Pages    []*types.PageSource
	Rendered []*types.RenderedPage
	Catalog  *registry.ComponentCatalog
	Used     types.UsedComponentSet
	Warnings []*builderrors.BuildError
}

// Pipeline runs builds of one site. Builds are serialized.
type Pipeline struct {
	cfg       *config.Config
	site      *site.Site
	fs        afero.Fs
	runner    ToolRunner
	logger    logging.Logger
	recorder  metrics.Recorder
	formatter renderer.Formatter

	mu      sync.Mutex
	stateMu sync.RWMutex
	state   State
	hooks   []TransitionFunc
	counter island.Counter
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFs replaces the filesystem, the OS filesystem by default.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// WithRunner replaces the external tool runner.
func WithRunner(r ToolRunner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithFormatter replaces the markup pretty-printer.
func WithFormatter(f renderer.Formatter) Option {
	return func(p *Pipeline) { p.formatter = f }
}

// NewPipeline creates a pipeline for s configured by cfg.
func NewPipeline(cfg *config.Config, s *site.Site, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		site:     s,
		fs:       afero.NewOsFs(),
		runner:   ExecRunner{},
		logger:   logging.Nop(),
		recorder: metrics.NoopRecorder{},
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.site == nil {
		p.site = site.New()
	}
	if p.logger == nil {
		p.logger = logging.Nop()
	}
	if p.recorder == nil {
		p.recorder = metrics.NoopRecorder{}
	}
	return p
}

// OnTransition registers fn to be called on every state change.
func (p *Pipeline) OnTransition(fn TransitionFunc) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.hooks = append(p.hooks, fn)
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

func (p *Pipeline) transition(ctx context.Context, log logging.Logger, to State) {
	p.stateMu.Lock()
	from := p.state
	p.state = to
	hooks := append([]TransitionFunc(nil), p.hooks...)
	p.stateMu.Unlock()

	log.Debug(ctx, "Pipeline state changed", "from", string(from), "to", string(to))
	for _, fn := range hooks {
		fn(from, to)
	}
}

// stage moves to state, runs fn and records its duration and outcome.
func (p *Pipeline) stage(ctx context.Context, log logging.Logger, state State, fn func() error) error {
	p.transition(ctx, log, state)

	op := logging.StartOperation(ctx, log, string(state))
	err := fn()
	if err == nil {
		err = ctx.Err()
	}

	var d time.Duration
	if err != nil {
		d = op.EndWithError(ctx, err)
		p.recorder.IncStageResult(string(state), outcome(ctx, err))
	} else {
		d = op.End(ctx)
		p.recorder.IncStageResult(string(state), metrics.ResultSuccess)
	}
	p.recorder.ObserveStageDuration(string(state), d)
	return err
}

func outcome(ctx context.Context, err error) metrics.ResultLabel {
	if ctx.Err() != nil {
		return metrics.ResultCanceled
	}
	if builderrors.IsRecoverable(err) {
		return metrics.ResultWarning
	}
	return metrics.ResultFatal
}

// Build runs a full build. On failure the partial report is returned with
// the error and no page file has been written.
func (p *Pipeline) Build(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	report := &Report{BuildID: uuid.NewString()}
	log := p.logger.With("build_id", report.BuildID).WithComponent("pipeline")
	collector := builderrors.NewCollector()

	p.stateMu.Lock()
	p.state = StateIdle
	p.stateMu.Unlock()

	fail := func(err error) (*Report, error) {
		report.Duration = time.Since(start)
		report.Warnings = warningsOf(collector)
		p.transition(ctx, log, StateFailed)
		p.recorder.IncBuildOutcome(outcome(ctx, err))
		p.recorder.ObserveBuildDuration(report.Duration)
		log.Error(ctx, err, "Build failed", "duration", report.Duration)
		return report, err
	}

	log.Info(ctx, "Build started", "pages", p.cfg.Paths.Pages, "output", p.cfg.OutputDir)

	var (
		pages    []*types.PageSource
		catalog  *registry.ComponentCatalog
		pr       *renderer.PageRenderer
		rendered []*types.RenderedPage
		used     types.UsedComponentSet
		css      = NewCSSBuilder(p.fs, p.runner, log, p.cfg.CSS.Command, p.cfg.CSS.Input, p.cfg.OutputDir)
		bundler  = NewHydrationBundler(p.fs, p.runner, log, p.bundlerOptions())
	)

	err := p.stage(ctx, log, StateScanningPages, func() error {
		if err := p.fs.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
			return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to create output directory", err).
				WithFile(p.cfg.OutputDir)
		}
		var err error
		pages, catalog, pr, err = p.prepare(ctx, log, css.Enabled())
		return err
	})
	if err != nil {
		return fail(err)
	}

	err = p.stage(ctx, log, StateRenderingPages, func() error {
		var err error
		rendered, err = p.renderAll(ctx, pr, pages, collector)
		return err
	})
	if err != nil {
		return fail(err)
	}

	err = p.stage(ctx, log, StateDiscoveringIslands, func() error {
		used = discovery.CombineRendered(rendered)
		report.Used = used
		log.Info(ctx, "Islands discovered", "components", used.IDs())
		return nil
	})
	if err != nil {
		return fail(err)
	}

	err = p.stage(ctx, log, StateBundlingHydration, func() error {
		res, err := bundler.Generate(ctx, catalog, &used)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			collector.Add(w)
		}
		report.Bundled = res.Components
		report.Stylesheet, err = css.Build(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}

	err = p.stage(ctx, log, StateReconcilingOutput, func() error {
		generated := append(bundler.GeneratedNames(), StylesheetName)
		rec := NewReconciler(p.fs, log, p.cfg.Paths.Assets, generated...)

		var err error
		if report.Removed, err = rec.CleanupOrphanedGenerated(p.cfg.OutputDir, p.cfg.Paths.Pages); err != nil {
			return err
		}
		report.Copied, err = rec.CopyStaticAssets(p.cfg.Paths.Assets, p.cfg.OutputDir)
		return err
	})
	if err != nil {
		return fail(err)
	}

	err = p.stage(ctx, log, StateFlushingPages, func() error {
		var err error
		report.Written, err = p.flush(rendered)
		return err
	})
	if err != nil {
		return fail(err)
	}

	for _, page := range rendered {
		report.Pages = append(report.Pages, page.OutputPath)
	}
	report.Warnings = warningsOf(collector)
	report.Duration = time.Since(start)
	p.transition(ctx, log, StateDone)

	p.recorder.SetPages(len(report.Pages))
	p.recorder.SetIslands(len(report.Used), len(report.Bundled))
	p.recorder.AddFilesRemoved(report.Removed)
	p.recorder.AddAssetsCopied(report.Copied)
	p.recorder.ObserveBuildDuration(report.Duration)
	if len(report.Warnings) > 0 {
		p.recorder.IncBuildOutcome(metrics.ResultWarning)
	} else {
		p.recorder.IncBuildOutcome(metrics.ResultSuccess)
	}

	log.Info(ctx, "Build completed",
		"pages", len(report.Pages),
		"islands", len(report.Bundled),
		"written", report.Written,
		"removed", report.Removed,
		"assets", report.Copied,
		"warnings", len(report.Warnings),
		"duration", report.Duration)
	return report, nil
}

// Inspect scans and renders the site in memory. Nothing is written.
func (p *Pipeline) Inspect(ctx context.Context) (*Inventory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := p.logger.WithComponent("pipeline")
	collector := builderrors.NewCollector()
	css := NewCSSBuilder(p.fs, p.runner, log, p.cfg.CSS.Command, p.cfg.CSS.Input, p.cfg.OutputDir)

	pages, catalog, pr, err := p.prepare(ctx, log, css.Enabled())
	if err != nil {
		return nil, err
	}
	rendered, err := p.renderAll(ctx, pr, pages, collector)
	if err != nil {
		return nil, err
	}

	return &Inventory{
		Pages:    pages,
		Rendered: rendered,
		Catalog:  catalog,
		Used:     discovery.CombineRendered(rendered),
		Warnings: warningsOf(collector),
	}, nil
}

// BundleComponents bundles every valid client component regardless of page
// usage.
func (p *Pipeline) BundleComponents(ctx context.Context) (*BundleResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := p.logger.WithComponent("pipeline")
	catalog, err := registry.Build(ctx, p.fs, p.cfg.Paths.Components, log)
	if err != nil {
		return nil, err
	}
	if err := p.fs.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to create output directory", err).
			WithFile(p.cfg.OutputDir)
	}
	return NewHydrationBundler(p.fs, p.runner, log, p.bundlerOptions()).Generate(ctx, catalog, nil)
}

func (p *Pipeline) bundlerOptions() BundlerOptions {
	return BundlerOptions{
		Command:    p.cfg.Bundler.Command,
		OutputDir:  p.cfg.OutputDir,
		CacheDir:   p.cfg.CacheDir,
		ScriptName: p.cfg.Bundler.ScriptName,
		Minify:     p.cfg.Build.Minify,
		Sourcemap:  p.cfg.Build.Sourcemap,
	}
}

// prepare scans the page sources, builds the component catalog and checks
// that every page resolves to an implementation.
func (p *Pipeline) prepare(ctx context.Context, log logging.Logger, stylesheet bool) ([]*types.PageSource, *registry.ComponentCatalog, *renderer.PageRenderer, error) {
	exists, err := scanner.DirExists(p.fs, p.cfg.Paths.Pages)
	if err != nil {
		return nil, nil, nil, err
	}
	if !exists {
		return nil, nil, nil, builderrors.NewFileSystemError(builderrors.ErrCodeDirNotFound,
			"pages directory not found", nil).WithFile(p.cfg.Paths.Pages)
	}

	files, err := scanner.NewFileScanner(p.fs).Scan(p.cfg.Paths.Pages)
	if err != nil {
		return nil, nil, nil, err
	}
	files = scanner.FilterPageFiles(files)

	pages := make([]*types.PageSource, 0, len(files))
	outputs := make(map[string]*types.PageSource, len(files))
	for _, rel := range files {
		page := types.NewPageSource(p.cfg.Paths.Pages, rel)
		if prev, ok := outputs[page.OutputPath]; ok {
			return nil, nil, nil, builderrors.NewValidationError(builderrors.ErrCodeDuplicatePage,
				fmt.Sprintf("pages %s and %s both write %s", prev.RelPath, page.RelPath, page.OutputPath)).
				WithFile(page.AbsPath).
				WithContext("files", []string{prev.RelPath, page.RelPath})
		}
		outputs[page.OutputPath] = page
		pages = append(pages, page)
	}
	log.Debug(ctx, "Pages scanned", "count", len(pages))

	catalog, err := registry.Build(ctx, p.fs, p.cfg.Paths.Components, log)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := renderer.Options{
		ScriptName: p.cfg.Bundler.ScriptName,
		Format:     p.cfg.Format.Enabled,
	}
	if stylesheet {
		opts.Stylesheet = StylesheetName
	}
	pr := renderer.NewPageRenderer(p.fs, p.site, log, opts)
	if p.formatter != nil {
		pr.SetFormatter(p.formatter)
	}

	if err := pr.ResolveAll(pages); err != nil {
		return nil, nil, nil, err
	}
	return pages, catalog, pr, nil
}

// renderAll renders pages in order with a fresh island counter.
func (p *Pipeline) renderAll(ctx context.Context, pr *renderer.PageRenderer, pages []*types.PageSource, collector *builderrors.Collector) ([]*types.RenderedPage, error) {
	p.counter.Reset()

	rendered := make([]*types.RenderedPage, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, warning, err := pr.RenderPage(ctx, page, &p.counter)
		if err != nil {
			return nil, err
		}
		collector.Add(warning)
		rendered = append(rendered, out)
	}
	return rendered, nil
}

// flush writes rendered pages, skipping files whose content is unchanged.
func (p *Pipeline) flush(rendered []*types.RenderedPage) (int, error) {
	written := 0
	for _, page := range rendered {
		dst := filepath.Join(p.cfg.OutputDir, filepath.FromSlash(page.OutputPath))
		data := []byte(page.Markup)

		if existing, err := afero.ReadFile(p.fs, dst); err == nil && bytes.Equal(existing, data) {
			continue
		}
		if err := writeFile(p.fs, dst, data); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func warningsOf(c *builderrors.Collector) []*builderrors.BuildError {
	ws := c.Warnings()
	out := make([]*builderrors.BuildError, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Err)
	}
	return out
}
