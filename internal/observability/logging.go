// Package observability carries build-scoped log attributes on a context, so
// that every line logged during a build names the build and the variant.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitevariants/internal/logfields"
)

// LogContext is the set of attributes attached to log lines.
type LogContext struct {
	BuildID string
	Variant string
	Stage   string
}

type ctxKey struct{}

func update(ctx context.Context, fn func(*LogContext)) context.Context {
	lc := GetContext(ctx)
	fn(&lc)
	return context.WithValue(ctx, ctxKey{}, lc)
}

// WithBuildID tags ctx with the build ID.
func WithBuildID(ctx context.Context, id string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.BuildID = id })
}

// WithVariant tags ctx with the variant being built.
func WithVariant(ctx context.Context, name string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Variant = name })
}

// WithStage tags ctx with the pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Stage = stage })
}

// GetContext returns the attributes stored on ctx.
func GetContext(ctx context.Context) LogContext {
	lc, _ := ctx.Value(ctxKey{}).(LogContext)
	return lc
}

// Attrs renders the stored attributes, skipping empty ones.
func (lc LogContext) Attrs() []slog.Attr {
	var attrs []slog.Attr
	if lc.BuildID != "" {
		attrs = append(attrs, logfields.BuildID(lc.BuildID))
	}
	if lc.Variant != "" {
		attrs = append(attrs, logfields.Variant(lc.Variant))
	}
	if lc.Stage != "" {
		attrs = append(attrs, logfields.Stage(lc.Stage))
	}
	return attrs
}

func logAt(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	slog.LogAttrs(ctx, level, msg, append(GetContext(ctx).Attrs(), attrs...)...)
}

func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelDebug, msg, attrs)
}

func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelInfo, msg, attrs)
}

func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelWarn, msg, attrs)
}

func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelError, msg, attrs)
}
