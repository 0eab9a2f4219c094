package actions

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/progress"
)

// StripScripts deletes script files and removes script-dependent markup from
// pages.
type StripScripts struct {
	Extensions []string
}

func (StripScripts) Name() string { return "strip-scripts" }

func (a StripScripts) ApplyFile(_ context.Context, fc *pipeline.FileContext) error {
	if hasExt(fc.Path(), a.Extensions) {
		if err := fc.Remove(); err != nil {
			return err
		}
		fc.Count(CountScriptsRemoved, 1)
		return nil
	}
	if !fc.IsHTML() {
		return nil
	}
	doc, err := fc.Document()
	if err != nil {
		return err
	}
	n := stripScripts(doc)
	fc.MarkDirty()
	fc.Count(CountElemsStripped, n)
	return nil
}

// DeleteScripts removes every script file from the staging tree.
type DeleteScripts struct {
	Extensions []string
}

func (DeleteScripts) Name() string { return "delete-scripts" }

func (a DeleteScripts) ApplyProject(ctx context.Context, pc *pipeline.ProjectContext, sink progress.Sink) error {
	files, err := pc.Files()
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to list staging area").Fatal().Build()
	}
	sink.Begin(a.Name(), len(files))
	defer sink.End(a.Name())

	n, err := deleteScripts(ctx, files, a.Extensions, func() { sink.Advance(a.Name(), 1) })
	pc.Count(CountScriptsRemoved, n)
	return err
}

func deleteScripts(ctx context.Context, files []pipeline.File, exts []string, advance func()) (int, error) {
	n := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		advance()
		if !hasExt(f.Path, exts) {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			return n, errors.WrapError(err, errors.CategoryFileSystem, "failed to delete script").
				Fatal().
				WithContext("file", f.Rel).
				Build()
		}
		n++
		slog.Debug("Deleted script", logfields.File(f.Rel))
	}
	return n, nil
}

// PruneDirs removes generated directories (relative to the staging root).
type PruneDirs struct {
	Dirs []string
}

func (PruneDirs) Name() string { return "prune-dirs" }

func (a PruneDirs) ApplyProject(_ context.Context, pc *pipeline.ProjectContext, sink progress.Sink) error {
	sink.Begin(a.Name(), len(a.Dirs))
	defer sink.End(a.Name())
	n, err := pruneDirs(pc.Root(), a.Dirs, func() { sink.Advance(a.Name(), 1) })
	pc.Count(CountDirsPruned, n)
	return err
}

func pruneDirs(root string, dirs []string, advance func()) (int, error) {
	n := 0
	for _, d := range dirs {
		advance()
		target := filepath.Join(root, filepath.FromSlash(d))
		if _, err := os.Stat(target); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return n, errors.WrapError(err, errors.CategoryFileSystem, "failed to prune directory").
				Fatal().
				WithContext("path", d).
				Build()
		}
		n++
		slog.Debug("Pruned directory", logfields.Path(d))
	}
	return n, nil
}
