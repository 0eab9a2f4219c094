package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitevariants/internal/actions"
	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/git"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/progress"
	"git.home.luguber.info/inful/sitevariants/internal/render"
	"git.home.luguber.info/inful/sitevariants/internal/route"
	"git.home.luguber.info/inful/sitevariants/internal/workspace"
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

type fixture struct {
	src    string
	deploy string
	ws     *workspace.Manager
	plan   Plan
}

func newFixture(t *testing.T, withFallback bool) *fixture {
	t.Helper()
	src := t.TempDir()
	write(t, filepath.Join(src, "src", "index.html"),
		`<html><head><script src="/dist/app.js"></script></head><body><a href="/interactive.html">go</a><p>{{.Variant.Name}}</p></body></html>`)
	write(t, filepath.Join(src, "src", "interactive.html"),
		`<html><head><meta name="variants" data-deny data-target="nojs"></head><body><canvas></canvas></body></html>`)
	if withFallback {
		write(t, filepath.Join(src, "src", "var_unavailable.html"),
			`<html><body><h1>Not available without JavaScript</h1></body></html>`)
	}
	write(t, filepath.Join(src, "dist", "app.js"), `run()`)
	write(t, filepath.Join(src, "node_modules", "lib", "index.js"), `lib`)
	write(t, filepath.Join(src, "LICENSE"), `MIT`)

	deployRoot := filepath.Join(t.TempDir(), "deploy")
	write(t, filepath.Join(deployRoot, "stale.html"), `old`)

	reg := actions.NewRegistry(actions.Options{
		Renderer:         render.NewTemplateRenderer(filepath.Join(src, "src"), nil),
		ScriptExtensions: []string{".js"},
		PruneDirs:        []string{"dist"},
	})
	steps := func(specs ...string) []pipeline.Step {
		var out []pipeline.Step
		for i := 0; i < len(specs); i += 2 {
			kind := pipeline.KindFile
			if specs[i] == "project" {
				kind = pipeline.KindProject
			}
			s, err := reg.Step(kind, specs[i+1])
			require.NoError(t, err)
			out = append(out, s)
		}
		return out
	}

	ws := workspace.NewManager(t.TempDir())
	return &fixture{
		src:    src,
		deploy: deployRoot,
		ws:     ws,
		plan: Plan{
			SourceRoot:  src,
			DeployRoot:  deployRoot,
			CleanDeploy: true,
			Router: route.NewRouter([]route.Rule{
				route.MustDiscard(`^node_modules`),
				route.MustDiscard(`^deploy`),
				route.MustRename(`(dist[/\\].*)$`, `$1$`),
				route.MustRename(`^LICENSE$`, route.DefaultOutbound),
				route.MustRename(`^src[/\\](.*?\.html)$`, `$1$`),
			}),
			Scripts: []*pipeline.Script{
				{Name: "nojs", Mount: "v/nojs", Steps: steps(
					"file", "render", "file", "strip-scripts", "file", "rewrite-mount-links", "project", "noscript-fallback")},
				{Name: "full", Mount: "", Steps: steps("file", "render", "file", "rewrite-mount-links")},
			},
		},
	}
}

func newTestOrchestrator(f *fixture) *Orchestrator {
	o := NewOrchestrator().
		WithWorkspace(f.ws).
		WithProgress(progress.NewCounter()).
		WithSourceDescriber(func(string) (git.SourceInfo, bool, error) {
			return git.SourceInfo{Commit: "0123456789abcdef", Branch: "main"}, true, nil
		})
	o.newID = func() string { return "build-1" }
	return o
}

func TestOrchestratorBuildsAllVariants(t *testing.T) {
	f := newFixture(t, true)
	report, err := newTestOrchestrator(f).Run(context.Background(), f.plan)
	require.NoError(t, err)

	assert.Equal(t, BuildStatusSuccess, report.Status)
	assert.Equal(t, "build-1", report.BuildID)
	require.NotNil(t, report.Source)
	assert.Equal(t, "main", report.Source.Branch)
	require.Len(t, report.Variants, 2)

	assert.NoFileExists(t, filepath.Join(f.deploy, "stale.html"))

	full := read(t, filepath.Join(f.deploy, "index.html"))
	assert.Contains(t, full, `<script src="/dist/app.js">`)
	assert.Contains(t, full, `<p>full</p>`)
	assert.Contains(t, full, `href="/interactive.html"`)
	assert.Contains(t, read(t, filepath.Join(f.deploy, "interactive.html")), "<canvas>")
	assert.FileExists(t, filepath.Join(f.deploy, "dist", "app.js"))
	assert.FileExists(t, filepath.Join(f.deploy, "LICENSE"))
	assert.NoDirExists(t, filepath.Join(f.deploy, "node_modules"))

	nojs := read(t, filepath.Join(f.deploy, "v", "nojs", "index.html"))
	assert.NotContains(t, nojs, "<script")
	assert.Contains(t, nojs, `href="/v/nojs/interactive.html"`)
	assert.Contains(t, nojs, `<p>nojs</p>`)
	assert.Contains(t, read(t, filepath.Join(f.deploy, "v", "nojs", "interactive.html")), "Not available without JavaScript")
	assert.NoDirExists(t, filepath.Join(f.deploy, "v", "nojs", "dist"))

	nojsReport := report.Variants[0]
	assert.Equal(t, "nojs", nojsReport.Name)
	assert.Equal(t, "merged", nojsReport.State)
	assert.Equal(t, StagedCounts{Files: 6, Copied: 5, Discarded: 1, Unmatched: 0}, nojsReport.Staged)
	assert.Equal(t, 1, nojsReport.Counters[actions.CountFallbacks])
	assert.False(t, nojsReport.Clobbered)
	// the root mount lands on top of v/nojs
	assert.True(t, report.Variants[1].Clobbered)

	assert.Zero(t, f.ws.Live(), "staging areas are released")
}

func TestOrchestratorStopsOnMissingFallback(t *testing.T) {
	f := newFixture(t, false)
	report, err := newTestOrchestrator(f).Run(context.Background(), f.plan)
	require.Error(t, err)

	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Equal(t, BuildStatusFailed, report.Status)
	assert.NotEmpty(t, report.Error)
	require.Len(t, report.Variants, 1)
	assert.Equal(t, "batching", report.Variants[0].State)

	assert.NoDirExists(t, filepath.Join(f.deploy, "v"), "a failed variant is never mounted")
	assert.NoFileExists(t, filepath.Join(f.deploy, "index.html"), "later variants do not run")
	assert.Zero(t, f.ws.Live(), "staging areas are released on error")
}

func TestOrchestratorCancelled(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newTestOrchestrator(f).Run(ctx, f.plan)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, BuildStatusCancelled, report.Status)
}

func TestReportWriteYAML(t *testing.T) {
	f := newFixture(t, true)
	report, err := newTestOrchestrator(f).Run(context.Background(), f.plan)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "build.yaml")
	require.NoError(t, report.WriteYAML(path))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(read(t, path)), &decoded))
	assert.Equal(t, "build-1", decoded["build_id"])
	assert.Equal(t, "success", decoded["status"])
	variants, ok := decoded["variants"].([]any)
	require.True(t, ok)
	assert.Len(t, variants, 2)
}

func TestBuildStatus(t *testing.T) {
	assert.True(t, BuildStatusWarning.IsSuccess())
	assert.False(t, BuildStatusCancelled.IsSuccess())
}
