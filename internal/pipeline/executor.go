package pipeline

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitevariants/internal/deploy"
	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
	"git.home.luguber.info/inful/sitevariants/internal/metrics"
	"git.home.luguber.info/inful/sitevariants/internal/observability"
	"git.home.luguber.info/inful/sitevariants/internal/progress"
	"git.home.luguber.info/inful/sitevariants/internal/route"
)

// State is the executor's position in a script run.
type State int

const (
	StateStaging State = iota
	StateBatching
	StateMerged
)

func (s State) String() string {
	switch s {
	case StateStaging:
		return "staging"
	case StateBatching:
		return "batching"
	case StateMerged:
		return "merged"
	default:
		return "unknown"
	}
}

// Stats counts the work done while batching.
type Stats struct {
	Phases   int
	Batches  int
	Visits   int // file visits summed over batches
	Parses   int
	Writes   int
	Removed  int
	Vanished int
	Warnings int
	// Counters holds action-specific totals such as "links_rewritten".
	Counters map[string]int
}

func (s *Stats) add(key string, n int) {
	if s.Counters == nil {
		s.Counters = map[string]int{}
	}
	s.Counters[key] += n
}

// Result describes one script run.
type Result struct {
	Variant  string
	Mount    string
	State    State
	Stage    route.StageStats
	Stats    Stats
	Mounted  deploy.MountResult
	Duration time.Duration
}

// DefaultHTMLExtensions is used when an Executor has none configured.
var DefaultHTMLExtensions = []string{".html"}

// Executor runs build scripts: it stages the source tree through the router,
// applies the script's phases to the staging area, then mounts the result
// into the deploy tree.
type Executor struct {
	Router     *route.Router
	SourceRoot string
	// DeployRoot is the final output root. Left empty, runs stop after batching.
	DeployRoot     string
	HTMLExtensions []string
	Sink           progress.Sink
	Recorder       metrics.Recorder
}

func (e *Executor) sink() progress.Sink {
	if e.Sink == nil {
		return progress.Noop{}
	}
	return e.Sink
}

func (e *Executor) recorder() metrics.Recorder {
	if e.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return e.Recorder
}

func (e *Executor) isHTML(path string) bool {
	exts := e.HTMLExtensions
	if len(exts) == 0 {
		exts = DefaultHTMLExtensions
	}
	ext := filepath.Ext(path)
	for _, x := range exts {
		if strings.EqualFold(ext, x) {
			return true
		}
	}
	return false
}

// Run executes script against a fresh, empty stagingRoot. The deploy tree is
// only touched after every phase completed without a fatal error.
func (e *Executor) Run(ctx context.Context, script *Script, stagingRoot string) (*Result, error) {
	start := time.Now()
	res := &Result{Variant: script.Name, Mount: script.Mount, State: StateStaging}
	rec := e.recorder()
	ctx = observability.WithVariant(ctx, script.Name)

	stageStart := time.Now()
	stage, err := route.Stage(ctx, e.Router, e.SourceRoot, stagingRoot, e.sink())
	res.Stage = stage
	e.observe(script.Name, "stage", stageStart, err)
	if err != nil {
		return res, err
	}
	rec.AddRouteDecisions(script.Name, route.Copy.String(), stage.Copied)
	rec.AddRouteDecisions(script.Name, route.Discard.String(), stage.Discarded)
	rec.AddRouteDecisions(script.Name, route.NoMatch.String(), stage.Unmatched)

	res.State = StateBatching
	for _, phase := range Partition(script.Steps) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Stats.Phases++
		phaseStart := time.Now()
		if phase.IsBatch() {
			bctx := observability.WithStage(ctx, "batch")
			observability.DebugContext(bctx, "Running file batch", slog.Any("actions", phase.Names()))
			err = e.runBatch(bctx, script, stagingRoot, phase.Files, &res.Stats)
			e.observe(script.Name, "batch", phaseStart, err)
		} else {
			pctx := observability.WithStage(ctx, phase.Project.Name())
			observability.DebugContext(pctx, "Running project action", logfields.Action(phase.Project.Name()))
			err = e.runProject(pctx, script, stagingRoot, phase.Project, &res.Stats)
			e.observe(script.Name, phase.Project.Name(), phaseStart, err)
		}
		if err != nil {
			return res, err
		}
	}

	if e.DeployRoot != "" {
		mountStart := time.Now()
		mounted, err := deploy.Mount(stagingRoot, e.DeployRoot, script.Mount)
		res.Mounted = mounted
		e.observe(script.Name, "mount", mountStart, err)
		if err != nil {
			return res, err
		}
		if mounted.Clobbered {
			rec.IncMountClobber(script.Mount)
		}
		res.State = StateMerged
	}

	res.Duration = time.Since(start)
	rec.ObserveVariantDuration(script.Name, res.Duration)
	observability.InfoContext(ctx, "Variant built",
		logfields.Mount(script.Mount),
		logfields.Count(res.Stage.Copied),
		slog.Int("parses", res.Stats.Parses),
		slog.Int("writes", res.Stats.Writes),
		slog.Int("warnings", res.Stats.Warnings),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))
	return res, nil
}

func (e *Executor) observe(variant, stage string, start time.Time, err error) {
	rec := e.recorder()
	rec.ObserveStageDuration(variant, stage, time.Since(start))
	switch {
	case err == nil:
		rec.IncStageResult(stage, metrics.ResultSuccess)
	case stderrors.Is(err, context.Canceled):
		rec.IncStageResult(stage, metrics.ResultCanceled)
	default:
		rec.IncStageResult(stage, metrics.ResultFatal)
	}
}

// runBatch applies every action of a batch to each staged file in turn. The
// tree is re-walked for every batch since project actions may add or remove
// files between batches.
func (e *Executor) runBatch(ctx context.Context, script *Script, root string, actions []FileAction, stats *Stats) error {
	stats.Batches++
	files, err := listFiles(root)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to list staging area").
			Fatal().
			WithContext("path", root).
			Build()
	}

	sink := e.sink()
	applied := make([]int, len(actions))
	for _, a := range actions {
		sink.Begin(a.Name(), len(files))
	}
	defer func() {
		for i, a := range actions {
			sink.End(a.Name())
			e.recorder().AddActionFiles(script.Name, a.Name(), applied[i])
		}
	}()

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Visits++
		fc := &FileContext{
			script: script,
			root:   root,
			path:   f.Path,
			rel:    f.Rel,
			html:   e.isHTML(f.Path),
			stats:  stats,
		}
		for i, a := range actions {
			sink.Advance(a.Name(), 1)
			if fc.Removed() || vanished(fc.path) {
				if !fc.Removed() {
					stats.Vanished++
				}
				break
			}
			err := a.ApplyFile(ctx, fc)
			if err == nil {
				applied[i]++
				continue
			}
			if isVanished(err) {
				stats.Vanished++
				break
			}
			if errors.IsWarning(err) {
				stats.Warnings++
				observability.WarnContext(ctx, "Skipped file action",
					logfields.Action(a.Name()),
					logfields.File(f.Rel),
					logfields.Error(err))
				continue
			}
			return annotate(err, script, a.Name(), f.Rel)
		}
		if _, err := fc.flush(); err != nil {
			return annotate(err, script, "", f.Rel)
		}
	}
	return nil
}

func (e *Executor) runProject(ctx context.Context, script *Script, root string, a ProjectAction, stats *Stats) error {
	pc := &ProjectContext{script: script, root: root, isHTML: e.isHTML, stats: stats}
	err := a.ApplyProject(ctx, pc, e.sink())
	if err == nil {
		return nil
	}
	if errors.IsWarning(err) {
		stats.Warnings++
		observability.WarnContext(ctx, "Project action reported a problem",
			logfields.Action(a.Name()),
			logfields.Error(err))
		return nil
	}
	return annotate(err, script, a.Name(), "")
}

// isVanished reports a raw not-exist error from touching the file itself.
// Classified errors carry their own severity even when caused by a missing file.
func isVanished(err error) bool {
	if errors.IsClassified(err) {
		return false
	}
	return stderrors.Is(err, fs.ErrNotExist)
}

func vanished(path string) bool {
	_, err := os.Stat(path)
	return err != nil && stderrors.Is(err, fs.ErrNotExist)
}

// annotate attaches the variant, action and file to a classified error.
// Unclassified errors become fatal build errors.
func annotate(err error, script *Script, action, file string) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	ce, ok := errors.AsClassified(err)
	if !ok {
		ce = errors.WrapError(err, errors.CategoryBuild, "transform action failed").Fatal().Build()
	}
	ce = ce.WithContext("variant", script.Name)
	if action != "" {
		ce = ce.WithContext("action", action)
	}
	if file != "" {
		ce = ce.WithContext("file", file)
	}
	return ce
}
