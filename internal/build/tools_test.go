package build

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/conneroisu/archipelago/internal/errors"
)

func TestExecRunnerValidation(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    []string
		wantErr string
	}{
		{"command not allowlisted", "rm", []string{"-rf", "dist"}, "not allowed"},
		{"shell metacharacter", "esbuild", []string{"entry.js;rm"}, "dangerous character"},
		{"path traversal", "esbuild", []string{"../../etc/passwd"}, "path traversal"},
		{"empty command", "", nil, "cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecRunner{}.Run(context.Background(), tt.command, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExecRunnerCustomAllowlist(t *testing.T) {
	_, err := ExecRunner{Allowed: map[string]bool{"tailwindcss": true}}.Run(context.Background(), "esbuild")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestSplitCommand(t *testing.T) {
	name, args := SplitCommand("npx  esbuild")
	assert.Equal(t, "npx", name)
	assert.Equal(t, []string{"esbuild"}, args)

	name, args = SplitCommand("   ")
	assert.Empty(t, name)
	assert.Nil(t, args)
}

type errRunner struct{ err error }

func (r errRunner) Run(context.Context, string, ...string) ([]byte, error) { return nil, r.err }

func TestRunToolErrors(t *testing.T) {
	err := runTool(context.Background(), errRunner{err: errors.New("exit status 2")}, "esbuild", "x.js")
	var be *builderrors.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, builderrors.KindExternalTool, be.Kind)
	assert.Equal(t, builderrors.ErrCodeToolFailed, be.Code)

	err = runTool(context.Background(), errRunner{err: &exec.Error{Name: "esbuild", Err: exec.ErrNotFound}}, "esbuild")
	require.ErrorAs(t, err, &be)
	assert.Equal(t, builderrors.ErrCodeToolNotFound, be.Code)

	err = runTool(context.Background(), errRunner{}, "")
	require.ErrorAs(t, err, &be)
	assert.Equal(t, builderrors.ErrCodeToolNotFound, be.Code)

	assert.NoError(t, runTool(context.Background(), errRunner{}, "esbuild"))
}
