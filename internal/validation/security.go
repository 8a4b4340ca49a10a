// Package validation checks component modules, configured paths and external
// tool commands before the build touches the output directory.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}

// AllowedTools lists the executables the build may invoke as external tools.
var AllowedTools = map[string]bool{
	"esbuild":     true,
	"tailwindcss": true,
	"npx":         true,
	"bunx":        true,
	"bun":         true,
	"pnpm":        true,
	"yarn":        true,
	"node":        true,
}

// ValidateArgument rejects shell metacharacters and traversal in a single
// command argument.
func ValidateArgument(arg string) error {
	for _, char := range append(dangerousChars, "\\") {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	return nil
}

// ValidateCommand validates a configured tool command line. The executable
// must be allowlisted; every word is checked with ValidateArgument. The
// {input} and {output} placeholders are accepted.
func ValidateCommand(command string, allowed map[string]bool) ([]string, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("command cannot be empty")
	}

	if !allowed[filepath.Base(parts[0])] {
		return nil, fmt.Errorf("command '%s' is not allowed", parts[0])
	}

	for _, part := range parts {
		if err := ValidateArgument(part); err != nil {
			return nil, fmt.Errorf("invalid command '%s': %w", command, err)
		}
	}

	return parts, nil
}

// ValidatePath validates a configured directory or file path.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal detected: %s", path)
	}

	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateOutputDir applies ValidatePath and refuses directories the
// reconciler must never scan: the working directory, the filesystem root and
// any source root or a parent of one.
func ValidateOutputDir(outputDir string, sourceRoots ...string) error {
	if err := ValidatePath(outputDir); err != nil {
		return err
	}

	clean := filepath.Clean(outputDir)
	if clean == "." || clean == string(filepath.Separator) {
		return fmt.Errorf("output directory %q would overlap the project", outputDir)
	}

	for _, root := range sourceRoots {
		if root == "" {
			continue
		}
		r := filepath.Clean(root)
		if r == clean || strings.HasPrefix(r+string(filepath.Separator), clean+string(filepath.Separator)) {
			return fmt.Errorf("output directory %q contains source root %q", outputDir, root)
		}
	}

	return nil
}
