package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyVariant    = "variant"
	KeyMount      = "mount"
	KeyStage      = "stage"
	KeyAction     = "action"
	KeyRule       = "rule"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyTarget     = "target"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Variant(name string) slog.Attr   { return slog.String(KeyVariant, name) }
func Mount(m string) slog.Attr        { return slog.String(KeyMount, m) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Action(name string) slog.Attr    { return slog.String(KeyAction, name) }
func Rule(idx int) slog.Attr          { return slog.Int(KeyRule, idx) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
