package route

import (
	"context"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/fsutil"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
	"git.home.luguber.info/inful/sitevariants/internal/progress"
)

// StageTask is the progress task name used while staging.
const StageTask = "stage"

// StageStats summarises one staging pass.
type StageStats struct {
	Files     int // files seen under the source root
	Copied    int
	Discarded int
	Unmatched int
}

// Stage walks sourceRoot (following symlinks) and copies every file the router
// assigns a destination into stagingRoot. Each file is routed exactly once.
func Stage(ctx context.Context, router *Router, sourceRoot, stagingRoot string, sink progress.Sink) (StageStats, error) {
	if sink == nil {
		sink = progress.Noop{}
	}
	var stats StageStats

	total, err := fsutil.CountFiles(sourceRoot)
	if err != nil {
		return stats, errors.WrapError(err, errors.CategoryFileSystem, "failed to scan source tree").
			WithContext("source", sourceRoot).
			Build()
	}
	sink.Begin(StageTask, total)
	defer sink.End(StageTask)

	err = fsutil.WalkFiles(sourceRoot, func(path, rel string, _ os.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Files++
		sink.Advance(StageTask, 1)

		d, err := router.Route(rel, stagingRoot)
		if err != nil {
			return err
		}
		switch d.Outcome {
		case Discard:
			stats.Discarded++
		case NoMatch:
			stats.Unmatched++
		case Copy:
			if err := fsutil.CopyFile(path, d.Dest); err != nil {
				return errors.WrapError(err, errors.CategoryFileSystem, "failed to stage file").
					Fatal().
					WithContext("source", rel).
					WithContext("destination", d.Dest).
					Build()
			}
			stats.Copied++
			slog.Debug("Staged file", logfields.File(rel), logfields.Target(d.Dest), logfields.Rule(d.Rule))
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	slog.Info("Staged source tree",
		logfields.Path(stagingRoot),
		"copied", stats.Copied,
		"discarded", stats.Discarded,
		"unmatched", stats.Unmatched)
	return stats, nil
}
