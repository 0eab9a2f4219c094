package errors

import "maps"

// ErrorCategory groups errors by the part of the build that raised them. The
// CLI maps categories to exit codes.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryBuild      ErrorCategory = "build"
	CategoryRender     ErrorCategory = "render"
	CategoryContent    ErrorCategory = "content"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity tells the pipeline how far an error reaches.
type ErrorSeverity string

const (
	// SeverityFatal aborts the build.
	SeverityFatal ErrorSeverity = "fatal"
	// SeverityError fails the current operation; callers decide what follows.
	SeverityError ErrorSeverity = "error"
	// SeverityWarning is logged and processing continues.
	SeverityWarning ErrorSeverity = "warning"
)

// ErrorContext is structured detail attached to an error.
type ErrorContext map[string]any

// Get returns the value stored under key.
func (c ErrorContext) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString returns the value under key when it is a string.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// Merge returns a new context holding c overlaid with other.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	out := make(ErrorContext, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}
