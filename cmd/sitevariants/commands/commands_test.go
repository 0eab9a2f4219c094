package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitevariants/internal/build"
	"git.home.luguber.info/inful/sitevariants/internal/config"
	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func read(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 - test file
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// newSite lays out a site using the built-in routes and variants.
func newSite(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "sitevariants.yaml"), "version: \"1.0\"\n")
	write(t, filepath.Join(dir, "src", "index.html"),
		`<html><head><script src="/dist/app.js"></script></head><body><a href="/interactive.html">go</a><p>{{.Variant.Name}}</p></body></html>`)
	write(t, filepath.Join(dir, "src", "interactive.html"),
		`<html><head><meta name="variants" data-deny data-target="nojs"></head><body><canvas></canvas></body></html>`)
	write(t, filepath.Join(dir, "src", "var_unavailable.html"),
		`<html><body><h1>Not available without JavaScript</h1></body></html>`)
	write(t, filepath.Join(dir, "dist", "app.js"), `run()`)
	write(t, filepath.Join(dir, "node_modules", "lib", "index.js"), `lib`)
	write(t, filepath.Join(dir, "LICENSE"), `MIT`)

	cfg, err := config.Load(filepath.Join(dir, "sitevariants.yaml"))
	require.NoError(t, err)
	return dir, cfg
}

func TestRunBuild_DefaultSite(t *testing.T) {
	dir, cfg := newSite(t)
	reportPath := filepath.Join(dir, "out", "report.yaml")
	metricsPath := filepath.Join(dir, "out", "build.prom")
	require.NoError(t, os.MkdirAll(filepath.Dir(metricsPath), 0o750))

	var out bytes.Buffer
	report, err := RunBuild(context.Background(), cfg, BuildOptions{
		Report:      reportPath,
		MetricsFile: metricsPath,
		Out:         &out,
	})
	require.NoError(t, err)
	assert.Equal(t, build.BuildStatusSuccess, report.Status)
	require.Len(t, report.Variants, 2)

	deploy := filepath.Join(dir, "deploy")
	full := read(t, filepath.Join(deploy, "index.html"))
	assert.Contains(t, full, "<p>full</p>")
	assert.Contains(t, full, "<script")
	assert.FileExists(t, filepath.Join(deploy, "dist", "app.js"))
	assert.FileExists(t, filepath.Join(deploy, "LICENSE"))
	assert.NoFileExists(t, filepath.Join(deploy, "node_modules", "lib", "index.js"))

	nojs := read(t, filepath.Join(deploy, "v", "nojs", "index.html"))
	assert.Contains(t, nojs, "<p>nojs</p>")
	assert.NotContains(t, nojs, "<script")
	assert.Contains(t, nojs, `href="/v/nojs/interactive.html"`)
	assert.Contains(t, read(t, filepath.Join(deploy, "v", "nojs", "interactive.html")), "Not available without JavaScript")
	assert.NoDirExists(t, filepath.Join(deploy, "v", "nojs", "dist"))

	assert.Contains(t, out.String(), "nojs")
	assert.Contains(t, read(t, reportPath), "status: success")
	assert.Contains(t, read(t, metricsPath), `sitevariants_build_outcomes_total{outcome="success"} 1`)
}

func TestRunBuild_InvalidActionsFailBeforeBuilding(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "sitevariants.yaml"), "variants:\n  - name: a\n    actions: [{project: render}]\n")
	_, err := config.Load(filepath.Join(dir, "sitevariants.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.NoDirExists(t, filepath.Join(dir, "deploy"))
}

func TestRunRoute(t *testing.T) {
	_, cfg := newSite(t)
	var out bytes.Buffer
	require.NoError(t, RunRoute(&out, cfg, ""))

	text := out.String()
	assert.Contains(t, text, "copy      src/index.html -> index.html")
	assert.Contains(t, text, "copy      dist/app.js -> dist/app.js")
	assert.Contains(t, text, "discard   node_modules/lib/index.js")
	assert.Contains(t, text, "no-match  sitevariants.yaml")
	assert.Contains(t, text, "5 copied, 1 discarded, 1 unmatched")

	out.Reset()
	require.NoError(t, RunRoute(&out, cfg, "discard"))
	assert.NotContains(t, out.String(), "copy ")

	err := RunRoute(&out, cfg, "bogus")
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRunPages(t *testing.T) {
	_, cfg := newSite(t)
	var out bytes.Buffer
	require.NoError(t, RunPages(&out, cfg))

	text := out.String()
	assert.Contains(t, text, "src/index.html  +nojs +full")
	assert.Contains(t, text, "src/interactive.html  -nojs +full")
}

func TestParseLogLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false))
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))

	t.Setenv(LogLevelEnv, "WARN")
	assert.Equal(t, slog.LevelWarn, parseLogLevel(true))
	t.Setenv(LogLevelEnv, "error")
	assert.Equal(t, slog.LevelError, parseLogLevel(false))
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitevariants.yaml")
	require.NoError(t, RunInit(path, false))
	assert.Error(t, RunInit(path, false))
	require.NoError(t, RunInit(path, true))
}
