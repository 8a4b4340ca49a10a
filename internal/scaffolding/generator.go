// Package scaffolding creates new projects and client components from
// built-in templates.
package scaffolding

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/archipelago/internal/config"
	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/scanner"
)

var (
	componentNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	wordSeparator        = regexp.MustCompile(`[^A-Za-z0-9]+`)
	packageNameInvalid   = regexp.MustCompile(`[^a-z0-9._-]+`)
)

// ComponentExtensions are the extensions a generated component may use.
// Plain .ts and .js modules cannot hold JSX.
var ComponentExtensions = []string{".tsx", ".jsx"}

// ComponentOptions configures CreateComponent.
type ComponentOptions struct {
	Name     string
	Template string
	// Dir is the components root.
	Dir string
	// Ext is the file extension, ".tsx" when empty.
	Ext string
	// Default makes the component the module's default export.
	Default bool
	// Force overwrites an existing file.
	Force bool
}

// ProjectOptions configures CreateProject.
type ProjectOptions struct {
	// Name titles the index page and names package.json, the directory
	// name when empty.
	Name string
	// Minimal omits package.json and the example component.
	Minimal bool
}

// scaffoldFile is one project file. A tmpl file is executed with the
// project data first.
type scaffoldFile struct {
	name    string
	content string
	tmpl    bool
}

// Generator writes scaffolded files.
type Generator struct {
	fs     afero.Fs
	logger logging.Logger
}

// NewGenerator creates a generator writing to fs.
func NewGenerator(fs afero.Fs, logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Generator{fs: fs, logger: logger.WithComponent("scaffolding")}
}

// ComponentName turns user input such as "date-picker" into a component
// identifier such as "DatePicker".
func ComponentName(raw string) (string, error) {
	caser := cases.Title(language.Und, cases.NoLower)

	var b strings.Builder
	for _, word := range wordSeparator.Split(raw, -1) {
		b.WriteString(caser.String(word))
	}

	name := b.String()
	if name == "" {
		return "", fmt.Errorf("component name cannot be empty")
	}
	if !componentNamePattern.MatchString(name) {
		return "", fmt.Errorf("component name %q must start with a letter", raw)
	}
	return name, nil
}

// CreateComponent writes a component module to opts.Dir and returns its
// path.
func (g *Generator) CreateComponent(ctx context.Context, opts ComponentOptions) (string, error) {
	name, err := ComponentName(opts.Name)
	if err != nil {
		return "", err
	}

	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	tmpl, ok := GetTemplate(opts.Template)
	if !ok {
		return "", fmt.Errorf("template %q not found", opts.Template)
	}

	ext := opts.Ext
	if ext == "" {
		ext = ".tsx"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !scanner.HasExtension("x"+ext, ComponentExtensions) {
		return "", fmt.Errorf("unsupported component extension %q (supported: %s)",
			ext, strings.Join(ComponentExtensions, ", "))
	}

	signature := "export function " + name
	if opts.Default {
		signature = "export default function " + name
	}

	content, err := render(tmpl.Content, TemplateContext{
		Name:      name,
		Signature: signature,
		Typed:     ext == ".tsx",
	})
	if err != nil {
		return "", err
	}

	file := filepath.Join(opts.Dir, name+ext)
	if !opts.Force {
		if exists, err := afero.Exists(g.fs, file); err != nil {
			return "", builderrors.NewFileSystemError(builderrors.ErrCodeReadFailed, "failed to stat component", err).WithFile(file)
		} else if exists {
			return "", fmt.Errorf("%s already exists, use --force to overwrite", file)
		}
	}

	if err := g.write(file, content); err != nil {
		return "", err
	}
	g.logger.Info(ctx, "Component created", "name", name, "template", tmpl.Name, "file", file)
	return file, nil
}

// CreateProject lays out a new project in dir using the default
// configuration. Existing files are kept. It returns the files it wrote,
// relative to dir.
func (g *Generator) CreateProject(ctx context.Context, dir string, opts ProjectOptions) ([]string, error) {
	if opts.Name == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		opts.Name = filepath.Base(abs)
	}

	cfg := config.Default()
	for _, d := range []string{cfg.Paths.Pages, cfg.Paths.Components, cfg.Paths.Assets} {
		if err := g.fs.MkdirAll(filepath.Join(dir, filepath.FromSlash(d)), 0o755); err != nil {
			return nil, builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to create directory", err).WithFile(d)
		}
	}

	configYAML, err := defaultConfigFile(cfg)
	if err != nil {
		return nil, err
	}

	data := struct{ Name, Package string }{
		Name:    opts.Name,
		Package: packageName(opts.Name),
	}

	files := []scaffoldFile{
		{name: config.ConfigName + ".yml", content: configYAML},
		{name: path.Join(cfg.Paths.Pages, "index.md"), content: indexPage, tmpl: true},
		{name: cfg.CSS.Input, content: globalStyles},
		{name: ".gitignore", content: gitignore},
	}

	if !opts.Minimal {
		counter, err := render(builtinTemplates["counter"].Content, TemplateContext{
			Name:      "Counter",
			Signature: "export function Counter",
			Typed:     true,
		})
		if err != nil {
			return nil, err
		}
		files = append(files,
			scaffoldFile{name: path.Join(cfg.Paths.Components, "Counter.tsx"), content: counter},
			scaffoldFile{name: "package.json", content: packageJSON, tmpl: true},
		)
	}

	var created []string
	for _, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.name))

		exists, err := afero.Exists(g.fs, target)
		if err != nil {
			return created, builderrors.NewFileSystemError(builderrors.ErrCodeReadFailed, "failed to stat file", err).WithFile(target)
		}
		if exists {
			g.logger.Info(ctx, "Keeping existing file", "file", target)
			continue
		}

		content := f.content
		if f.tmpl {
			if content, err = render(f.content, data); err != nil {
				return created, err
			}
		}
		if err := g.write(target, content); err != nil {
			return created, err
		}
		created = append(created, f.name)
	}

	g.logger.Info(ctx, "Project created", "dir", dir, "files", len(created))
	return created, nil
}

func (g *Generator) write(file, content string) error {
	if err := g.fs.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to create directory", err).WithFile(file)
	}
	if err := afero.WriteFile(g.fs, file, []byte(content), 0o644); err != nil {
		return builderrors.NewFileSystemError(builderrors.ErrCodeWriteFailed, "failed to write file", err).WithFile(file)
	}
	return nil
}

func render(content string, data interface{}) (string, error) {
	tmpl, err := template.New("scaffold").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func defaultConfigFile(cfg *config.Config) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("# archipelago configuration. Every key can be overridden with an\n")
	buf.WriteString("# ARCHIPELAGO_* environment variable, e.g. ARCHIPELAGO_OUTPUT_DIR.\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// packageName derives an npm package name from a project name.
func packageName(name string) string {
	pkg := packageNameInvalid.ReplaceAllString(strings.ToLower(name), "-")
	pkg = strings.Trim(pkg, "-._")
	if pkg == "" {
		return "site"
	}
	return pkg
}
