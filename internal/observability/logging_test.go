package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextAttributesAreLogged(t *testing.T) {
	buf := captureLogs(t)

	ctx := WithBuildID(context.Background(), "b-1")
	ctx = WithVariant(ctx, "nojs")
	ctx = WithStage(ctx, "mount")
	InfoContext(ctx, "Mounted", slog.Int("count", 3))

	out := buf.String()
	assert.Contains(t, out, "build_id=b-1")
	assert.Contains(t, out, "variant=nojs")
	assert.Contains(t, out, "stage=mount")
	assert.Contains(t, out, "count=3")
	assert.Contains(t, out, "level=INFO")
}

func TestContextLayersDoNotLeak(t *testing.T) {
	base := WithBuildID(context.Background(), "b-2")
	child := WithVariant(base, "full")

	assert.Equal(t, LogContext{BuildID: "b-2"}, GetContext(base))
	assert.Equal(t, LogContext{BuildID: "b-2", Variant: "full"}, GetContext(child))
	assert.Equal(t, LogContext{}, GetContext(context.Background()))
}

func TestLevels(t *testing.T) {
	buf := captureLogs(t)
	ctx := context.Background()
	DebugContext(ctx, "d")
	WarnContext(ctx, "w")
	ErrorContext(ctx, "e")
	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
}
