package actions

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/htmldoc"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/progress"
	"git.home.luguber.info/inful/sitevariants/internal/variant"
)

// DefaultFallbackPage is the staged page served in place of pages that opt out
// of a variant.
const DefaultFallbackPage = "var_unavailable.html"

// NoscriptFallback turns the staging tree into a script-free site. Generated
// directories are pruned and script files deleted; every page is stripped of
// script-dependent markup, and pages that opt out of the variant are replaced
// by the stripped fallback page. The fallback page itself is processed first
// regardless of its own declarations; without it the build cannot continue.
type NoscriptFallback struct {
	FallbackPage     string
	ScriptExtensions []string
	PruneDirs        []string
}

func (NoscriptFallback) Name() string { return "noscript-fallback" }

func (a NoscriptFallback) page() string {
	if a.FallbackPage == "" {
		return DefaultFallbackPage
	}
	return a.FallbackPage
}

func (a NoscriptFallback) ApplyProject(ctx context.Context, pc *pipeline.ProjectContext, sink progress.Sink) error {
	name := pc.Script().Name
	log := slog.With(logfields.Variant(name), logfields.Action(a.Name()))

	pruned, err := pruneDirs(pc.Root(), a.PruneDirs, func() {})
	if err != nil {
		return err
	}
	pc.Count(CountDirsPruned, pruned)

	files, err := pc.Files()
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to list staging area").Fatal().Build()
	}
	var pages []pipeline.File
	var scripts []pipeline.File
	for _, f := range files {
		switch {
		case pc.IsHTML(f.Path):
			pages = append(pages, f)
		case hasExt(f.Path, a.ScriptExtensions):
			scripts = append(scripts, f)
		}
	}
	removed, err := deleteScripts(ctx, scripts, a.ScriptExtensions, func() {})
	if err != nil {
		return err
	}
	pc.Count(CountScriptsRemoved, removed)

	sink.Begin(a.Name(), len(pages))
	defer sink.End(a.Name())

	fallback, err := a.loadFallback(pc.Root())
	if err != nil {
		return err
	}

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		sink.Advance(a.Name(), 1)

		// #nosec G304 - page is inside the staging area
		content, err := os.ReadFile(p.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to read page").
				Fatal().
				WithContext("file", p.Rel).
				Build()
		}
		doc, err := htmldoc.Parse(content)
		if err != nil {
			log.Warn("Skipping unparsable page", logfields.File(p.Rel), logfields.Error(err))
			continue
		}

		out := fallback
		if variant.EligibleDocument(doc, name) {
			stripScripts(doc)
			if out, err = htmldoc.Render(doc); err != nil {
				return errors.WrapError(err, errors.CategoryInternal, "failed to serialize page").
					WithContext("file", p.Rel).
					Build()
			}
		} else {
			pc.Count(CountFallbacks, 1)
			log.Debug("Page opts out of variant; using fallback", logfields.File(p.Rel))
		}
		if err := os.WriteFile(p.Path, out, 0o644); err != nil { // #nosec G306 - site output is world-readable
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to write page").
				Fatal().
				WithContext("file", p.Rel).
				Build()
		}
	}
	return nil
}

// loadFallback reads and strips the fallback page once.
func (a NoscriptFallback) loadFallback(root string) ([]byte, error) {
	rel := a.page()
	path := filepath.Join(root, filepath.FromSlash(rel))
	// #nosec G304 - fallback page is inside the staging area
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("fallback page is missing from the staged site").
				WithCause(err).
				WithContext("page", rel).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read fallback page").
			Fatal().
			WithContext("page", rel).
			Build()
	}
	doc, err := htmldoc.Parse(content)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "fallback page cannot be parsed").
			Fatal().
			WithContext("page", rel).
			Build()
	}
	stripScripts(doc)
	out, err := htmldoc.Render(doc)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to serialize fallback page").Build()
	}
	return out, nil
}
