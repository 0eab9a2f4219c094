package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitevariants/internal/config"
	"git.home.luguber.info/inful/sitevariants/internal/logfields"
	"git.home.luguber.info/inful/sitevariants/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	KeepStaging bool `name:"keep-staging" help:"Keep staging areas for inspection"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ignoreDirs := []string{cfg.DeployRoot()}
	if ws := cfg.WorkspaceDir(); ws != "" {
		ignoreDirs = append(ignoreDirs, ws)
	}
	watcher, err := watch.New(watch.Options{
		Root:       cfg.SourceRoot(),
		Debounce:   cfg.Watch.Debounce,
		Interval:   cfg.Watch.Interval,
		Ignore:     cfg.Watch.Ignore,
		IgnoreDirs: ignoreDirs,
	}, func(ctx context.Context) error {
		// Reload so edits to the configuration apply to the next build.
		current, loadErr := config.Load(root.Config)
		if loadErr != nil {
			slog.Warn("Configuration invalid; keeping previous one", logfields.Error(loadErr))
			current = cfg
		}
		cfg = current
		_, buildErr := RunBuild(ctx, current, BuildOptions{KeepStaging: w.KeepStaging, Out: os.Stdout})
		return buildErr
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			slog.Warn("Failed to stop watcher", logfields.Error(cerr))
		}
	}()
	return watcher.Run(ctx)
}
