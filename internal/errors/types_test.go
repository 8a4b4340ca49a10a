package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildErrorError(t *testing.T) {
	err := NewValidationError(ErrCodeInvalidComponent, "not invocable").
		WithComponent("Counter").
		WithFile("src/components/Counter.tsx")

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_INVALID_COMPONENT]")
	assert.Contains(t, msg, "component:Counter")
	assert.Contains(t, msg, "src/components/Counter.tsx")
	assert.Contains(t, msg, "not invocable")
}

func TestBuildErrorUnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := NewExternalToolError(ErrCodeToolFailed, "esbuild", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, &BuildError{Kind: KindExternalTool, Code: ErrCodeToolFailed}))
	assert.False(t, errors.Is(err, &BuildError{Kind: KindRender, Code: ErrCodeToolFailed}))

	wrapped := fmt.Errorf("bundling: %w", err)
	assert.True(t, IsKind(wrapped, KindExternalTool))
}

func TestFatalClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"configuration", NewConfigurationError(ErrCodeConfigInvalid, "bad", nil), false},
		{"formatting", NewFormattingError(errors.New("boom")), false},
		{"resolution", NewResolutionWarning([]string{"Missing"}), false},
		{"validation", NewValidationError(ErrCodeValidationFailed, "bad"), true},
		{"render", NewRenderError("index.go", errors.New("boom")), true},
		{"tool", NewExternalToolError(ErrCodeToolFailed, "esbuild", nil), true},
		{"filesystem", NewFileSystemError(ErrCodeReadFailed, "read", nil), true},
		{"plain", errors.New("plain"), true},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestResolutionWarningListsMissing(t *testing.T) {
	err := NewResolutionWarning([]string{"Alpha", "Beta"})
	assert.Contains(t, err.Error(), "Alpha, Beta")
	assert.Equal(t, []string{"Alpha", "Beta"}, err.Context["missing"])
}

func TestValidationErrorCollection(t *testing.T) {
	vec := &ValidationErrorCollection{}
	assert.False(t, vec.HasErrors())
	assert.Nil(t, vec.ToBuildError())

	vec.Add("a/Broken.tsx", "not a function")
	vec.Add("Other.tsx", "missing export", "syntax")

	require.True(t, vec.HasErrors())
	be := vec.ToBuildError()
	require.NotNil(t, be)
	assert.Equal(t, KindValidation, be.Kind)
	assert.Equal(t, []string{"a/Broken.tsx", "Other.tsx"}, be.Context["files"])
	assert.Contains(t, be.Error(), "2 components failed validation")
	assert.Contains(t, be.Error(), "missing export; syntax")
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Add(nil)
	c.Add(NewFormattingError(errors.New("x")))
	c.Add(NewResolutionWarning([]string{"A"}))
	c.Add(NewResolutionWarning([]string{"B"}))

	assert.Equal(t, 3, c.Len())
	assert.Len(t, c.ByKind(KindResolution), 2)
	assert.Len(t, c.ByKind(KindFormatting), 1)
	assert.Equal(t, KindFormatting, c.Warnings()[0].Err.Kind)

	c.Clear()
	assert.Zero(t, c.Len())
}

type recordingLogger struct {
	warns  []string
	errors []string
}

func (r *recordingLogger) Error(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.errors = append(r.errors, msg)
}

func (r *recordingLogger) Warn(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.warns = append(r.warns, msg)
}

func TestErrorHandlerRoutesByRecoverability(t *testing.T) {
	logger := &recordingLogger{}
	h := NewErrorHandler(logger)
	ctx := context.Background()

	h.Handle(ctx, nil)
	h.Handle(ctx, NewFormattingError(errors.New("x")))
	h.Handle(ctx, NewRenderError("index.go", errors.New("x")))
	h.Handle(ctx, errors.New("plain"))

	assert.Equal(t, []string{"Build warning"}, logger.warns)
	assert.Equal(t, []string{"Build error", "Unhandled error occurred"}, logger.errors)
}
