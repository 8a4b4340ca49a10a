package validation

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/logging"
	"github.com/conneroisu/archipelago/internal/scanner"
	"github.com/conneroisu/archipelago/internal/types"
)

// ValidationResult is the outcome of checking one client component module.
type ValidationResult struct {
	ComponentName string
	FilePath      string
	IsValid       bool
	Export        types.ExportKind
	Errors        []string
	Warnings      []string
}

// NamingCollision lists files whose base names derive the same identifier.
type NamingCollision struct {
	Name  string
	Files []string
}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	exportList        = regexp.MustCompile(`export\s*(?:type\s*)?\{([^}]*)\}`)
	defaultExport     = regexp.MustCompile(`export\s+default\s+(.*)`)
	literalValue      = regexp.MustCompile(`^(?:[0-9+\-.'"` + "`" + `\[{]|true\b|false\b|null\b|undefined\b|new\s)`)
)

// namedExportPatterns returns the declaration forms that export name.
func namedExportPatterns(name string) (decl *regexp.Regexp, binding *regexp.Regexp) {
	q := regexp.QuoteMeta(name)
	decl = regexp.MustCompile(`export\s+(?:declare\s+)?(?:async\s+)?(?:abstract\s+)?(?:function\s*\*?|class)\s+` + q + `\b`)
	binding = regexp.MustCompile(`export\s+(?:const|let|var)\s+` + q + `\s*(?::[^=]+)?=\s*(.*)`)
	return decl, binding
}

// ComponentValidator checks client component modules by static analysis of
// their export statements. Modules are never executed.
type ComponentValidator struct {
	fs     afero.Fs
	logger logging.Logger
}

// NewComponentValidator creates a validator reading through fs.
func NewComponentValidator(fs afero.Fs, logger logging.Logger) *ComponentValidator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ComponentValidator{fs: fs, logger: logger.WithComponent("validator")}
}

// Validate confirms that the module at basePath/file exposes an invocable
// component under its derived name or as the default export.
func (v *ComponentValidator) Validate(file, basePath string) ValidationResult {
	name := scanner.ComponentName(file)
	result := ValidationResult{
		ComponentName: name,
		FilePath:      file,
		IsValid:       true,
	}

	if !identifierPattern.MatchString(name) {
		result.IsValid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Cannot derive a component identifier from '%s'. Rename the file to a valid identifier.", file))
		return result
	}

	data, err := afero.ReadFile(v.fs, path.Join(basePath, file))
	if err != nil {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read %s: %v", file, err))
		return result
	}

	source := stripComments(string(data))
	decl, binding := namedExportPatterns(name)

	switch {
	case decl.MatchString(source):
		result.Export = types.ExportNamed
	case binding.MatchString(source):
		rhs := binding.FindStringSubmatch(source)[1]
		if !invocable(rhs) {
			result.IsValid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("'%s' is not a function. Components must be functions.", name))
			return result
		}
		result.Export = types.ExportNamed
	case listExports(source)[name]:
		result.Export = types.ExportNamed
	}

	if result.Export == types.ExportNamed {
		return result
	}

	if m := defaultExport.FindStringSubmatch(source); m != nil || listExports(source)["default"] {
		if m != nil && !invocable(m[1]) {
			result.IsValid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("Default export of '%s' is not a function. Components must be functions.", file))
			return result
		}
		result.Export = types.ExportDefault
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Component '%s' uses default export. Consider using named export for consistency.", name))
		return result
	}

	result.IsValid = false
	result.Errors = append(result.Errors,
		fmt.Sprintf("Component '%s' not found. Expected named export '%s' or default export.", name, name))
	return result
}

// ValidateAll validates every file and fails when any of them is invalid.
// Warnings are logged but never fail the build.
func (v *ComponentValidator) ValidateAll(ctx context.Context, files []string, basePath string) ([]ValidationResult, error) {
	v.logger.Debug(ctx, "Validating components", "count", len(files))

	results := make([]ValidationResult, 0, len(files))
	failures := &builderrors.ValidationErrorCollection{}

	for _, file := range files {
		result := v.Validate(file, basePath)
		results = append(results, result)

		if !result.IsValid {
			v.logger.Error(ctx, nil, "Component validation failed", "file", file, "errors", result.Errors)
			failures.Add(file, result.Errors...)
		}
		for _, warning := range result.Warnings {
			v.logger.Warn(ctx, nil, warning, "file", file)
		}
	}

	if failures.HasErrors() {
		return results, failures.ToBuildError()
	}

	return results, nil
}

// CheckNaming reports every derived name shared by two or more files.
func CheckNaming(files []string) []NamingCollision {
	byName := make(map[string][]string)
	for _, file := range files {
		name := scanner.ComponentName(file)
		byName[name] = append(byName[name], file)
	}

	var collisions []NamingCollision
	for name, paths := range byName {
		if len(paths) < 2 {
			continue
		}
		sorted := append([]string(nil), paths...)
		sort.Strings(sorted)
		collisions = append(collisions, NamingCollision{Name: name, Files: sorted})
	}

	sort.Slice(collisions, func(i, j int) bool { return collisions[i].Name < collisions[j].Name })
	return collisions
}

// stripComments removes // and /* */ comments outside string and template
// literals. Regular expression literals and JSX text are read as code.
func stripComments(source string) string {
	var b strings.Builder
	b.Grow(len(source))

	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			end := stringEnd(source, i)
			b.WriteString(source[i:end])
			i = end - 1
		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(source) && source[i+1] == '*':
			end := strings.Index(source[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			b.WriteByte(' ')
			i += end + 3
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// stringEnd returns the index just past the string literal opening at start.
// An unterminated literal runs to the end of the source. Template literal
// substitutions are not parsed.
func stringEnd(source string, start int) int {
	quote := source[start]
	for i := start + 1; i < len(source); i++ {
		switch source[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		case '\n':
			if quote != '`' {
				return i + 1
			}
		}
	}
	return len(source)
}

// invocable reports whether the expression text after "=" or "export default"
// can be a component. Only literals are rejected; aliases and wrapper calls
// such as memo(...) are accepted.
func invocable(expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	return !literalValue.MatchString(expr)
}

// listExports parses "export { A, B as C }" clauses and returns the exported
// names.
func listExports(source string) map[string]bool {
	names := make(map[string]bool)
	for _, m := range exportList.FindAllStringSubmatch(source, -1) {
		for _, spec := range strings.Split(m[1], ",") {
			fields := strings.Fields(spec)
			switch {
			case len(fields) == 1:
				names[fields[0]] = true
			case len(fields) == 3 && fields[1] == "as":
				names[fields[2]] = true
			}
		}
	}
	return names
}
