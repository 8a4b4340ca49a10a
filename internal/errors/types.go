package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind represents the categories of failures a build can produce.
type Kind string

const (
	// KindConfiguration covers malformed or missing configuration. Recovered
	// with defaults.
	KindConfiguration Kind = "configuration"
	// KindValidation covers invalid components and unresolved pages. Fatal.
	KindValidation Kind = "validation"
	// KindRender covers page markup generation failures. Fatal.
	KindRender Kind = "render"
	// KindFormatting covers pretty-printing failures. Recovered with the raw
	// markup.
	KindFormatting Kind = "formatting"
	// KindResolution covers island identifiers with no catalog entry.
	KindResolution Kind = "resolution"
	// KindExternalTool covers bundler and CSS tool invocations. Fatal.
	KindExternalTool Kind = "external_tool"
	// KindFileSystem covers unreadable directories and failed writes. Fatal
	// unless the call site treats an absent path as empty.
	KindFileSystem Kind = "filesystem"
)

// Common error codes.
const (
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeConfigField       = "ERR_CONFIG_FIELD"
	ErrCodeInvalidComponent  = "ERR_INVALID_COMPONENT"
	ErrCodeNamingCollision   = "ERR_NAMING_COLLISION"
	ErrCodePageUnresolved    = "ERR_PAGE_UNRESOLVED"
	ErrCodeDuplicatePage     = "ERR_DUPLICATE_PAGE"
	ErrCodeValidationFailed  = "ERR_VALIDATION_FAILED"
	ErrCodeRenderFailed      = "ERR_RENDER_FAILED"
	ErrCodeFormatFailed      = "ERR_FORMAT_FAILED"
	ErrCodeComponentNotFound = "ERR_COMPONENT_NOT_FOUND"
	ErrCodeToolFailed        = "ERR_TOOL_FAILED"
	ErrCodeToolNotFound      = "ERR_TOOL_NOT_FOUND"
	ErrCodeDirNotFound       = "ERR_DIR_NOT_FOUND"
	ErrCodeReadFailed        = "ERR_READ_FAILED"
	ErrCodeWriteFailed       = "ERR_WRITE_FAILED"
	ErrCodeInvalidPath       = "ERR_INVALID_PATH"
	ErrCodePathTraversal     = "ERR_PATH_TRAVERSAL"
)

// BuildError is the structured error type used across the pipeline.
type BuildError struct {
	Kind        Kind
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Is matches on kind and code.
func (e *BuildError) Is(target error) bool {
	var t *BuildError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuildError) WithContext(key string, value interface{}) *BuildError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile records the file the error refers to.
func (e *BuildError) WithFile(filePath string) *BuildError {
	e.FilePath = filePath

	return e
}

// WithComponent adds component context.
func (e *BuildError) WithComponent(component string) *BuildError {
	e.Component = component

	return e
}

// Error creation functions

// NewConfigurationError creates a recoverable configuration error.
func NewConfigurationError(code, message string, cause error) *BuildError {
	return &BuildError{
		Kind:        KindConfiguration,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewValidationError creates a fatal validation error.
func NewValidationError(code, message string) *BuildError {
	return &BuildError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// NewRenderError creates a fatal render error.
func NewRenderError(page string, cause error) *BuildError {
	return &BuildError{
		Kind:     KindRender,
		Code:     ErrCodeRenderFailed,
		Message:  "failed to render page",
		Cause:    cause,
		FilePath: page,
	}
}

// NewFormattingError creates a recoverable formatting error.
func NewFormattingError(cause error) *BuildError {
	return &BuildError{
		Kind:        KindFormatting,
		Code:        ErrCodeFormatFailed,
		Message:     "failed to format markup, using unformatted output",
		Cause:       cause,
		Recoverable: true,
	}
}

// NewResolutionWarning reports island identifiers missing from the catalog.
func NewResolutionWarning(missing []string) *BuildError {
	return &BuildError{
		Kind:        KindResolution,
		Code:        ErrCodeComponentNotFound,
		Message:     "islands reference missing components: " + strings.Join(missing, ", "),
		Context:     map[string]interface{}{"missing": missing},
		Recoverable: true,
	}
}

// NewCollisionWarning reports an island identifier derived from several
// component modules. files[0] is the module that was used.
func NewCollisionWarning(name string, files []string) *BuildError {
	return &BuildError{
		Kind:        KindResolution,
		Code:        ErrCodeNamingCollision,
		Message:     fmt.Sprintf("component '%s' is defined by %d files, using %s", name, len(files), files[0]),
		Component:   name,
		Context:     map[string]interface{}{"files": files},
		Recoverable: true,
	}
}

// NewExternalToolError creates a fatal external tool error.
func NewExternalToolError(code, tool string, cause error) *BuildError {
	return &BuildError{
		Kind:    KindExternalTool,
		Code:    code,
		Message: "external tool failed: " + tool,
		Cause:   cause,
	}
}

// NewFileSystemError creates a fatal file system error.
func NewFileSystemError(code, message string, cause error) *BuildError {
	return &BuildError{
		Kind:    KindFileSystem,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error only degrades output quality.
func IsRecoverable(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}

// IsFatal reports whether err must abort the build.
func IsFatal(err error) bool {
	return err != nil && !IsRecoverable(err)
}

// IsKind checks the kind of a structured error.
func IsKind(err error, kind Kind) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Kind == kind
	}

	return false
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler routes errors to the logger at a level that matches their kind.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs recoverable errors as warnings and everything else as errors.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var be *BuildError
	if !errors.As(err, &be) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	if be.Recoverable {
		h.logger.Warn(ctx, be, "Build warning",
			"kind", be.Kind,
			"code", be.Code,
			"file", be.FilePath)
		return
	}

	h.logger.Error(ctx, be, "Build error",
		"kind", be.Kind,
		"code", be.Code,
		"component", be.Component,
		"file", be.FilePath)
}

// ValidationFailure describes why one file failed validation.
type ValidationFailure struct {
	File   string
	Errors []string
}

// ValidationErrorCollection aggregates per-file validation failures into a
// single fatal error.
type ValidationErrorCollection struct {
	Failures []ValidationFailure
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Failures) == 0 {
		return "no validation errors"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d components failed validation", len(vec.Failures))
	for _, f := range vec.Failures {
		fmt.Fprintf(&b, "\n  %s: %s", f.File, strings.Join(f.Errors, "; "))
	}

	return b.String()
}

// Add records the errors of one file.
func (vec *ValidationErrorCollection) Add(file string, errs ...string) {
	vec.Failures = append(vec.Failures, ValidationFailure{File: file, Errors: errs})
}

// HasErrors returns true if there are any validation failures.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Failures) > 0
}

// ToBuildError converts the collection into a fatal validation error.
func (vec *ValidationErrorCollection) ToBuildError() *BuildError {
	if !vec.HasErrors() {
		return nil
	}

	files := make([]string, 0, len(vec.Failures))
	for _, f := range vec.Failures {
		files = append(files, f.File)
	}

	return &BuildError{
		Kind:    KindValidation,
		Code:    ErrCodeValidationFailed,
		Message: "component validation failed",
		Cause:   vec,
		Context: map[string]interface{}{"files": files},
	}
}
