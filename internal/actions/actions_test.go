package actions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/htmldoc"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/render"
	"git.home.luguber.info/inful/sitevariants/internal/route"
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

// run stages every file of src verbatim and executes the given steps.
func run(t *testing.T, src string, script *pipeline.Script) (string, *pipeline.Result, error) {
	t.Helper()
	staging := t.TempDir()
	exec := &pipeline.Executor{
		Router:     route.NewRouter([]route.Rule{route.MustRename(`^.*$`, route.DefaultOutbound)}),
		SourceRoot: src,
	}
	res, err := exec.Run(context.Background(), script, staging)
	return staging, res, err
}

var jsExt = []string{".js"}

const fallbackPage = `<html><head><script src="/x.js"></script></head><body><h1>Unavailable</h1></body></html>`

func TestNoscriptFallbackReplacesOptedOutPages(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "var_unavailable.html"), fallbackPage)
	write(t, filepath.Join(src, "app.html"),
		`<html><head><meta name="variants" data-deny data-target="nojs"></head><body><p>interactive</p></body></html>`)
	write(t, filepath.Join(src, "plain.html"),
		`<html><body><p>plain</p><script>track()</script><div data-js-required>widget</div></body></html>`)
	write(t, filepath.Join(src, "dist", "bundle.js"), `x`)
	write(t, filepath.Join(src, "static", "site.js"), `y`)

	script := &pipeline.Script{Name: "nojs", Mount: "v/nojs", Steps: []pipeline.Step{
		pipeline.ProjectStep(NoscriptFallback{ScriptExtensions: jsExt, PruneDirs: []string{"dist"}}),
	}}
	staging, res, err := run(t, src, script)
	require.NoError(t, err)

	app := read(t, filepath.Join(staging, "app.html"))
	assert.Contains(t, app, "<h1>Unavailable</h1>")
	assert.NotContains(t, app, "interactive")
	assert.NotContains(t, app, "<script", "fallback content is stripped too")

	plain := read(t, filepath.Join(staging, "plain.html"))
	assert.Contains(t, plain, "<p>plain</p>")
	assert.NotContains(t, plain, "track()")
	assert.NotContains(t, plain, "widget")

	assert.NoDirExists(t, filepath.Join(staging, "dist"))
	assert.NoFileExists(t, filepath.Join(staging, "static", "site.js"))

	assert.Equal(t, 1, res.Stats.Counters[CountFallbacks])
	assert.Equal(t, 1, res.Stats.Counters[CountScriptsRemoved])
	assert.Equal(t, 1, res.Stats.Counters[CountDirsPruned])
}

func TestNoscriptFallbackIgnoresFallbackPageDeclarations(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "var_unavailable.html"),
		`<html><head><meta name="variants" data-deny-all></head><body><h1>Unavailable</h1></body></html>`)
	write(t, filepath.Join(src, "a.html"),
		`<html><head><meta name="variants" data-deny-all></head><body>a</body></html>`)

	staging, _, err := run(t, src, &pipeline.Script{Name: "nojs", Steps: []pipeline.Step{
		pipeline.ProjectStep(NoscriptFallback{ScriptExtensions: jsExt}),
	}})
	require.NoError(t, err)
	assert.Contains(t, read(t, filepath.Join(staging, "a.html")), "<h1>Unavailable</h1>")
}

func TestNoscriptFallbackMissingPageIsFatal(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "index.html"), `<html><body>x</body></html>`)

	_, _, err := run(t, src, &pipeline.Script{Name: "nojs", Steps: []pipeline.Step{
		pipeline.ProjectStep(NoscriptFallback{ScriptExtensions: jsExt}),
	}})
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryConfig, ce.Category())
	assert.True(t, ce.IsFatal())
	assert.Equal(t, DefaultFallbackPage, ce.Context()["page"])
}

func TestStripScriptsDeletesScriptFilesAndMarksPagesDirty(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "index.html"), `<html><body><p>hi</p><script>inline()</script></body></html>`)
	write(t, filepath.Join(src, "js", "app.js"), `x`)
	write(t, filepath.Join(src, "css", "site.css"), `body{}`)

	staging, res, err := run(t, src, &pipeline.Script{Name: "nojs", Steps: []pipeline.Step{
		pipeline.FileStep(StripScripts{Extensions: jsExt}),
	}})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(staging, "js", "app.js"))
	assert.FileExists(t, filepath.Join(staging, "css", "site.css"))
	index := read(t, filepath.Join(staging, "index.html"))
	assert.NotContains(t, index, "inline()")
	assert.Contains(t, index, "<p>hi</p>")
	assert.Equal(t, 1, res.Stats.Writes)
	assert.Equal(t, 1, res.Stats.Counters[CountElemsStripped])
}

func TestRewriteMountLinks(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "index.html"), `<html><head>`+
		`<link rel="stylesheet" href="/css/site.css">`+
		`<link rel="icon" href="/favicon.ico">`+
		`<script src="/js/app.js"></script>`+
		`</head><body>`+
		`<a href="/a/b">local</a>`+
		`<a href="//cdn.example.com/x">cdn</a>`+
		`<a href="https://example.com/">abs</a>`+
		`<a href="/keep" data-link-absolute>keep</a>`+
		`<img src="/img/logo.png">`+
		`</body></html>`)
	write(t, filepath.Join(src, "untouched.html"), `<html><body><a href="rel/x">x</a></body></html>`)

	staging, res, err := run(t, src, &pipeline.Script{Name: "nojs", Mount: "v/nojs", Steps: []pipeline.Step{
		pipeline.FileStep(RewriteMountLinks{}),
	}})
	require.NoError(t, err)

	index := read(t, filepath.Join(staging, "index.html"))
	assert.Contains(t, index, `href="/v/nojs/a/b"`)
	assert.Contains(t, index, `href="//cdn.example.com/x"`)
	assert.Contains(t, index, `href="https://example.com/"`)
	assert.Contains(t, index, `href="/keep"`)
	assert.Contains(t, index, `src="/v/nojs/img/logo.png"`)
	assert.Contains(t, index, `href="/v/nojs/favicon.ico"`)
	assert.Contains(t, index, `href="/css/site.css"`)
	assert.Contains(t, index, `src="/js/app.js"`)

	assert.Equal(t, `<html><body><a href="rel/x">x</a></body></html>`, read(t, filepath.Join(staging, "untouched.html")))
	assert.Equal(t, 1, res.Stats.Writes, "only pages with rewritten links are written")
	assert.Equal(t, 3, res.Stats.Counters[CountLinksRewritten])
}

func TestRewriteMountLinksSkipsEmptyMount(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "index.html"), `<a href="/a">a</a>`)
	staging, res, err := run(t, src, &pipeline.Script{Name: "full", Steps: []pipeline.Step{
		pipeline.FileStep(RewriteMountLinks{}),
	}})
	require.NoError(t, err)
	assert.Zero(t, res.Stats.Parses)
	assert.Equal(t, `<a href="/a">a</a>`, read(t, filepath.Join(staging, "index.html")))
}

func TestRewriteLinksReportsRepeatedAttributes(t *testing.T) {
	doc, err := htmldoc.Parse([]byte(`<html><body><a href="/ok">ok</a></body></html>`))
	require.NoError(t, err)
	body := htmldoc.FindAll(doc, htmldoc.Tag("body"))[0]
	dup := &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A, Attr: []html.Attribute{
		{Key: "href", Val: "/one"}, {Key: "href", Val: "/two"},
	}}
	body.AppendChild(dup)

	changed, ambiguous := rewriteLinks(doc, "v")
	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, ambiguous)
	assert.Equal(t, "/one", dup.Attr[0].Val)
}

func TestRenderReplacesPages(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "docs", "index.html"), `placeholder`)
	write(t, filepath.Join(src, "style.css"), `body{}`)

	var calls []render.PageData
	r := render.Func(func(name string, data render.PageData) (string, error) {
		calls = append(calls, data)
		return "<p>" + data.Variant.Name + ":" + name + "</p>", nil
	})
	staging, res, err := run(t, src, &pipeline.Script{Name: "full", Mount: "", Steps: []pipeline.Step{
		pipeline.FileStep(Render{Renderer: r}),
		pipeline.FileStep(RewriteMountLinks{}),
	}})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "docs/index.html", calls[0].Path)
	assert.Equal(t, "<p>full:docs/index.html</p>", read(t, filepath.Join(staging, "docs", "index.html")))
	assert.Equal(t, "body{}", read(t, filepath.Join(staging, "style.css")))
	assert.Equal(t, 1, res.Stats.Counters[CountRendered])
}

func TestRenderMissingTemplateAbortsVariant(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "index.html"), `x`)
	r := render.NewTemplateRenderer(t.TempDir(), nil)

	_, _, err := run(t, src, &pipeline.Script{Name: "full", Steps: []pipeline.Step{
		pipeline.FileStep(Render{Renderer: r}),
	}})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRender))
}

func TestNojsScriptEndToEnd(t *testing.T) {
	src := t.TempDir()
	tpl := filepath.Join(src, "templates")
	write(t, filepath.Join(tpl, "index.html"),
		`<html><head><script src="/app.js"></script></head><body><a href="/about.html">About {{.Variant.Name}}</a></body></html>`)
	write(t, filepath.Join(tpl, "var_unavailable.html"), `<html><body><h1>Unavailable</h1></body></html>`)
	for _, p := range []string{"index.html", "var_unavailable.html"} {
		write(t, filepath.Join(src, p), "stub")
	}
	write(t, filepath.Join(src, "app.js"), `x`)

	reg := NewRegistry(Options{
		Renderer:         render.NewTemplateRenderer(tpl, nil),
		ScriptExtensions: jsExt,
	})
	var steps []pipeline.Step
	for _, s := range []struct {
		kind pipeline.Kind
		name string
	}{
		{pipeline.KindFile, "render"},
		{pipeline.KindFile, "strip-scripts"},
		{pipeline.KindFile, "rewrite-mount-links"},
		{pipeline.KindProject, "noscript-fallback"},
	} {
		step, err := reg.Step(s.kind, s.name)
		require.NoError(t, err)
		steps = append(steps, step)
	}

	exec := &pipeline.Executor{
		Router:     route.NewRouter([]route.Rule{route.MustDiscard(`^templates`), route.MustRename(`^.*$`, route.DefaultOutbound)}),
		SourceRoot: src,
	}
	staging := t.TempDir()
	res, err := exec.Run(context.Background(), &pipeline.Script{Name: "nojs", Mount: "v/nojs", Steps: steps}, staging)
	require.NoError(t, err)

	index := read(t, filepath.Join(staging, "index.html"))
	assert.Contains(t, index, `href="/v/nojs/about.html"`)
	assert.Contains(t, index, "About nojs")
	assert.False(t, strings.Contains(index, "<script"))
	assert.NoFileExists(t, filepath.Join(staging, "app.js"))
	// render, strip and rewrite share one parse per page
	assert.Equal(t, 2, res.Stats.Parses)
	assert.Equal(t, 2, res.Stats.Writes)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(Options{ScriptExtensions: jsExt})
	assert.Equal(t, []string{"render", "rewrite-mount-links", "strip-scripts"}, reg.Names(pipeline.KindFile))
	assert.Equal(t, []string{"delete-scripts", "noscript-fallback", "prune-dirs"}, reg.Names(pipeline.KindProject))

	step, err := reg.Step(pipeline.KindProject, "noscript-fallback")
	require.NoError(t, err)
	assert.Equal(t, pipeline.KindProject, step.Kind)

	_, err = reg.Step(pipeline.KindFile, "noscript-fallback")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = reg.Step(pipeline.KindFile, "minify")
	require.Error(t, err)
	ce, _ := errors.AsClassified(err)
	assert.Equal(t, "unknown action", ce.Message())
}

func TestDeleteScriptsAndPruneDirs(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "a.js"), "x")
	write(t, filepath.Join(src, "b.JS"), "x")
	write(t, filepath.Join(src, "gen", "c.txt"), "x")
	write(t, filepath.Join(src, "keep.txt"), "x")

	staging, res, err := run(t, src, &pipeline.Script{Name: "nojs", Steps: []pipeline.Step{
		pipeline.ProjectStep(DeleteScripts{Extensions: jsExt}),
		pipeline.ProjectStep(PruneDirs{Dirs: []string{"gen", "missing"}}),
	}})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(staging, "a.js"))
	assert.NoFileExists(t, filepath.Join(staging, "b.JS"))
	assert.NoDirExists(t, filepath.Join(staging, "gen"))
	assert.FileExists(t, filepath.Join(staging, "keep.txt"))
	assert.Equal(t, 2, res.Stats.Counters[CountScriptsRemoved])
	assert.Equal(t, 1, res.Stats.Counters[CountDirsPruned])
}
