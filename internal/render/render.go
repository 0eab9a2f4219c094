// Package render resolves staged HTML pages against the site's template
// directory.
//
// A page staged at "docs/index.html" is rendered from "<templates>/docs/index.html".
// Partials matched by the configured glob patterns are parsed into every page
// under their slash-separated path, so a page can pull in a layout with
// {{template "layouts/base.html" .}}.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/mattn/go-zglob"
	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
)

// Variant is the variant information exposed to templates.
type Variant struct {
	Name  string
	Mount string
}

// PageData is the data passed to every template execution.
type PageData struct {
	Variant Variant
	// Path is the page's slash-separated path relative to the staging root.
	Path string
}

// Renderer resolves a template name to rendered text.
type Renderer interface {
	Render(name string, data PageData) (string, error)
}

// Func adapts a plain function to Renderer.
type Func func(name string, data PageData) (string, error)

func (f Func) Render(name string, data PageData) (string, error) { return f(name, data) }

// TemplateRenderer renders pages with text/template.
type TemplateRenderer struct {
	dir      string
	patterns []string

	once    sync.Once
	base    *template.Template
	baseErr error
}

// NewTemplateRenderer creates a renderer rooted at dir. Partials are loaded on
// first use.
func NewTemplateRenderer(dir string, partials []string) *TemplateRenderer {
	return &TemplateRenderer{dir: dir, patterns: append([]string(nil), partials...)}
}

// Dir returns the template root directory.
func (r *TemplateRenderer) Dir() string { return r.dir }

// Render executes the template stored at name under the template root.
// A template that does not exist is a fatal render error.
func (r *TemplateRenderer) Render(name string, data PageData) (string, error) {
	r.once.Do(func() { r.base, r.baseErr = r.loadPartials() })
	if r.baseErr != nil {
		return "", r.baseErr
	}

	name = filepath.ToSlash(name)
	path := filepath.Join(r.dir, filepath.FromSlash(name))
	// #nosec G304 - template path is derived from the staged tree
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.RenderError("template not found").
				WithCause(err).
				WithContext("template", name).
				WithContext("dir", r.dir).
				Build()
		}
		return "", errors.WrapError(err, errors.CategoryRender, "failed to read template").
			Fatal().
			WithContext("template", name).
			Build()
	}

	set, err := r.base.Clone()
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInternal, "failed to clone template set").Build()
	}
	set = set.Funcs(pageFuncs(data))

	tpl, err := set.New(name).Parse(string(body))
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryRender, "failed to parse template").
			Fatal().
			WithContext("template", name).
			Build()
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", errors.WrapError(err, errors.CategoryRender, "failed to render template").
			Fatal().
			WithContext("template", name).
			Build()
	}
	return buf.String(), nil
}

func (r *TemplateRenderer) loadPartials() (*template.Template, error) {
	base := template.New("").Funcs(pageFuncs(PageData{})).Option("missingkey=error")
	for _, pattern := range r.patterns {
		matches, err := zglob.Glob(filepath.Join(r.dir, pattern))
		if err != nil {
			// A pattern whose root does not exist simply has no partials.
			continue
		}
		for _, m := range matches {
			rel, err := filepath.Rel(r.dir, m)
			if err != nil {
				return nil, fmt.Errorf("resolve partial %s: %w", m, err)
			}
			// #nosec G304 - globbed below the template root
			body, err := os.ReadFile(m)
			if err != nil {
				return nil, errors.WrapError(err, errors.CategoryRender, "failed to read partial").
					Fatal().
					WithContext("partial", m).
					Build()
			}
			if _, err := base.New(filepath.ToSlash(rel)).Parse(string(body)); err != nil {
				return nil, errors.WrapError(err, errors.CategoryRender, "failed to parse partial").
					Fatal().
					WithContext("partial", filepath.ToSlash(rel)).
					Build()
			}
		}
	}
	return base, nil
}

func pageFuncs(data PageData) template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"mountURL": func(u string) string {
			out, _ := MountURL(data.Variant.Mount, u)
			return out
		},
	}
}

// Markdown converts CommonMark source to HTML.
func Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// MountURL prefixes a root-relative URL ("/x", not "//host/x") with "/"+mount.
// The second result reports whether the URL changed.
func MountURL(mount, u string) (string, bool) {
	if mount == "" || !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") {
		return u, false
	}
	return "/" + mount + u, true
}
