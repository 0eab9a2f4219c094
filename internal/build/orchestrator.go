package build

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitevariants/internal/deploy"
	"git.home.luguber.info/inful/sitevariants/internal/foundation/errors"
	"git.home.luguber.info/inful/sitevariants/internal/git"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
	"git.home.luguber.info/inful/sitevariants/internal/metrics"
	"git.home.luguber.info/inful/sitevariants/internal/observability"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
	"git.home.luguber.info/inful/sitevariants/internal/progress"
	"git.home.luguber.info/inful/sitevariants/internal/route"
	"git.home.luguber.info/inful/sitevariants/internal/workspace"
)

// Plan is everything a build needs; it is derived from configuration once.
type Plan struct {
	SourceRoot     string
	DeployRoot     string
	CleanDeploy    bool
	HTMLExtensions []string
	Router         *route.Router
	Scripts        []*pipeline.Script
}

// Orchestrator runs every script of a plan, one at a time.
type Orchestrator struct {
	workspace *workspace.Manager
	recorder  metrics.Recorder
	sink      progress.Sink
	describe  func(path string) (git.SourceInfo, bool, error)
	newID     func() string
}

// NewOrchestrator creates an orchestrator that stages under the OS temp dir.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		workspace: workspace.NewManager(""),
		recorder:  metrics.NoopRecorder{},
		sink:      progress.Noop{},
		describe:  git.Describe,
		newID:     uuid.NewString,
	}
}

// WithWorkspace sets the manager staging areas are taken from.
func (o *Orchestrator) WithWorkspace(m *workspace.Manager) *Orchestrator {
	o.workspace = m
	return o
}

// WithRecorder sets the metrics recorder.
func (o *Orchestrator) WithRecorder(r metrics.Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// WithProgress sets the progress sink.
func (o *Orchestrator) WithProgress(s progress.Sink) *Orchestrator {
	o.sink = s
	return o
}

// WithSourceDescriber replaces the VCS lookup (for testing).
func (o *Orchestrator) WithSourceDescriber(fn func(path string) (git.SourceInfo, bool, error)) *Orchestrator {
	o.describe = fn
	return o
}

// Run prepares the deploy root and builds every variant in order. A failing
// variant stops the build; variants mounted before it stay in the deploy tree.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (*Report, error) {
	start := time.Now()
	report := &Report{
		BuildID:   o.newID(),
		StartedAt: start,
		Deploy:    plan.DeployRoot,
	}
	ctx = observability.WithBuildID(ctx, report.BuildID)

	finish := func(status BuildStatus, err error) (*Report, error) {
		report.Status = status
		report.Duration = time.Since(start)
		if err != nil {
			report.Error = err.Error()
		}
		o.recorder.ObserveBuildDuration(report.Duration)
		o.recorder.IncBuildOutcome(outcomeLabel(status))
		return report, err
	}

	if plan.Router == nil {
		return finish(BuildStatusFailed, errors.ConfigError("no routing rules configured").Build())
	}

	if info, ok, err := o.describe(plan.SourceRoot); err != nil {
		observability.WarnContext(ctx, "Could not read source revision", logfields.Error(err))
	} else if ok {
		report.Source = &info
	}

	observability.InfoContext(ctx, "Starting build",
		logfields.Path(plan.SourceRoot),
		logfields.Target(plan.DeployRoot),
		logfields.Count(len(plan.Scripts)))

	if err := deploy.Prepare(plan.DeployRoot, plan.CleanDeploy); err != nil {
		return finish(BuildStatusFailed, err)
	}

	for _, script := range plan.Scripts {
		vctx := observability.WithVariant(ctx, script.Name)
		vr, err := o.runVariant(vctx, plan, script)
		if vr != nil {
			report.Variants = append(report.Variants, *vr)
		}
		if err != nil {
			observability.ErrorContext(vctx, "Variant failed", logfields.Error(err))
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				return finish(BuildStatusCancelled, err)
			}
			return finish(BuildStatusFailed, err)
		}
	}

	status := BuildStatusSuccess
	if report.Warnings() > 0 {
		status = BuildStatusWarning
	}
	rep, err := finish(status, nil)
	observability.InfoContext(ctx, "Build finished",
		slog.String("status", string(status)),
		logfields.DurationMS(float64(rep.Duration.Microseconds())/1000))
	return rep, err
}

func (o *Orchestrator) runVariant(ctx context.Context, plan Plan, script *pipeline.Script) (*VariantReport, error) {
	area, err := o.workspace.Create(script.Name)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create staging area").
			Fatal().
			WithContext("variant", script.Name).
			Build()
	}
	defer func() {
		if err := area.Release(); err != nil {
			observability.WarnContext(ctx, "Failed to remove staging area", logfields.Error(err))
		}
	}()

	observability.InfoContext(ctx, "Building variant", logfields.Mount(script.Mount), logfields.Path(area.Path()))
	exec := &pipeline.Executor{
		Router:         plan.Router,
		SourceRoot:     plan.SourceRoot,
		DeployRoot:     plan.DeployRoot,
		HTMLExtensions: plan.HTMLExtensions,
		Sink:           o.sink,
		Recorder:       o.recorder,
	}
	res, err := exec.Run(ctx, script, area.Path())
	if res == nil {
		return nil, err
	}
	vr := variantReport(res)
	return &vr, err
}

func outcomeLabel(s BuildStatus) metrics.BuildOutcomeLabel {
	switch s {
	case BuildStatusSuccess:
		return metrics.BuildOutcomeSuccess
	case BuildStatusWarning:
		return metrics.BuildOutcomeWarning
	case BuildStatusCancelled:
		return metrics.BuildOutcomeCanceled
	default:
		return metrics.BuildOutcomeFailed
	}
}
