// Package errors provides the classified error primitives used across sitevariants.
//
// A ClassifiedError carries a category (config, render, content, ...), a severity
// and structured context. The severity decides how the pipeline reacts:
//
//   - SeverityFatal aborts the whole build before the current variant is merged.
//   - SeverityWarning is logged by the executor and the remaining work continues.
//
// Errors are created through the fluent builder:
//
//	err := errors.ConfigError("unknown action").
//		WithContext("variant", name).
//		WithContext("action", action).
//		Build()
package errors
