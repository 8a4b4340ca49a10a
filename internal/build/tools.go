// Package build runs the static site build: it renders every page, bundles
// the client components the pages reference and reconciles the output
// directory with the current sources.
package build

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
	"github.com/conneroisu/archipelago/internal/validation"
)

// ToolRunner invokes external build tools.
type ToolRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs allowlisted tools as child processes.
type ExecRunner struct {
	// Dir is the working directory of the child. Empty means the current one.
	Dir string
	// Allowed overrides validation.AllowedTools.
	Allowed map[string]bool
}

// Run executes name with args and returns the combined output. Command and
// arguments are validated before anything is started; cancelling ctx kills
// the child.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	allowed := r.Allowed
	if allowed == nil {
		allowed = validation.AllowedTools
	}

	if _, err := validation.ValidateCommand(name, allowed); err != nil {
		return nil, fmt.Errorf("command validation failed: %w", err)
	}
	for _, arg := range args {
		if err := validation.ValidateArgument(arg); err != nil {
			return nil, fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return output, fmt.Errorf("%s cancelled: %w", name, ctx.Err())
		}
		return output, fmt.Errorf("%s failed: %w\nOutput: %s", name, err, output)
	}

	return output, nil
}

// SplitCommand splits a configured command line into the executable and its
// leading arguments ("npx esbuild" runs npx with esbuild as first argument).
func SplitCommand(command string) (string, []string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// runTool invokes a configured command and maps failures to an
// ExternalToolError.
func runTool(ctx context.Context, runner ToolRunner, command string, args ...string) error {
	name, prefix := SplitCommand(command)
	if name == "" {
		return builderrors.NewExternalToolError(builderrors.ErrCodeToolNotFound, command, errors.New("empty command"))
	}

	_, err := runner.Run(ctx, name, append(prefix, args...)...)
	if err == nil {
		return nil
	}

	code := builderrors.ErrCodeToolFailed
	if errors.Is(err, exec.ErrNotFound) {
		code = builderrors.ErrCodeToolNotFound
	}
	return builderrors.NewExternalToolError(code, name, err)
}
