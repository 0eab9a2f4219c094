package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitevariants/internal/build"
	"git.home.luguber.info/inful/sitevariants/internal/config"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
	"git.home.luguber.info/inful/sitevariants/internal/metrics"
	"git.home.luguber.info/inful/sitevariants/internal/progress"
	"git.home.luguber.info/inful/sitevariants/internal/workspace"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Override output.directory"`
	Report      string `help:"Write a YAML build report to this path" type:"path"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in text format to this path" type:"path"`
	KeepStaging bool   `name:"keep-staging" help:"Keep staging areas for inspection"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = RunBuild(ctx, cfg, BuildOptions{
		Report:      b.Report,
		MetricsFile: b.MetricsFile,
		KeepStaging: b.KeepStaging,
		Out:         os.Stdout,
	})
	return err
}

// BuildOptions are the per-invocation knobs of a build.
type BuildOptions struct {
	Report      string
	MetricsFile string
	KeepStaging bool
	Out         io.Writer
}

// RunBuild runs one full build of cfg and prints a summary to opts.Out.
func RunBuild(ctx context.Context, cfg *config.Config, opts BuildOptions) (*build.Report, error) {
	plan, err := cfg.Plan(cfg.Registry())
	if err != nil {
		return nil, err
	}

	ws := workspace.NewManager(cfg.WorkspaceDir())
	if opts.KeepStaging {
		ws = workspace.NewKeepingManager(cfg.WorkspaceDir())
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			slog.Warn("Failed to cleanup staging areas", logfields.Error(cerr))
		}
	}()

	orch := build.NewOrchestrator().
		WithWorkspace(ws).
		WithProgress(progress.NewLogSink(slog.Default()))

	var registry *prometheus.Registry
	if opts.MetricsFile != "" {
		registry = prometheus.NewRegistry()
		orch = orch.WithRecorder(metrics.NewPrometheusRecorder(registry))
	}

	report, err := orch.Run(ctx, plan)

	if report != nil {
		if opts.Out != nil {
			printSummary(opts.Out, report)
		}
		if opts.Report != "" {
			if werr := report.WriteYAML(opts.Report); werr != nil {
				slog.Warn("Failed to write build report", logfields.Path(opts.Report), logfields.Error(werr))
			}
		}
	}
	if registry != nil {
		if merr := metrics.WriteTextfile(registry, opts.MetricsFile); merr != nil {
			slog.Warn("Failed to write metrics", logfields.Path(opts.MetricsFile), logfields.Error(merr))
		}
	}
	return report, err
}

func printSummary(w io.Writer, r *build.Report) {
	_, _ = fmt.Fprintf(w, "Build %s: %s in %s\n", r.BuildID, r.Status, r.Duration.Round(time.Millisecond))
	for _, v := range r.Variants {
		mount := v.Mount
		if mount == "" {
			mount = "/"
		}
		_, _ = fmt.Fprintf(w, "  %-10s %-12s staged=%d discarded=%d unmatched=%d mounted=%d warnings=%d\n",
			v.Name, mount, v.Staged.Copied, v.Staged.Discarded, v.Staged.Unmatched, v.Mounted, v.Warnings)
	}
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
}
