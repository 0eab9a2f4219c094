// Package watch rebuilds the site when the source tree changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-zglob"

	"git.home.luguber.info/inful/sitevariants/internal/logfields"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

// BuildFunc runs one build. Errors are logged; watching continues.
type BuildFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	// Root is the tree being watched.
	Root string
	// Debounce is the quiet period after the last change before a rebuild.
	Debounce time.Duration
	// Interval forces a rebuild periodically when positive.
	Interval time.Duration
	// Ignore holds globs relative to Root.
	Ignore []string
	// IgnoreDirs holds directories never watched, typically the deploy root.
	IgnoreDirs []string
}

// Watcher runs at most one build at a time. Requests arriving while a build
// is running collapse into a single follow-up build.
type Watcher struct {
	opts     Options
	build    BuildFunc
	fs       *fsnotify.Watcher
	sched    gocron.Scheduler
	requests chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher over opts.Root. Close releases it.
func New(opts Options, build BuildFunc) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	opts.Root = root
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	for i, d := range opts.IgnoreDirs {
		if abs, absErr := filepath.Abs(d); absErr == nil {
			opts.IgnoreDirs[i] = abs
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		opts:     opts,
		build:    build,
		fs:       fw,
		requests: make(chan struct{}, 1),
	}
	w.addDirsRecursive(root)

	if opts.Interval > 0 {
		s, schedErr := gocron.NewScheduler()
		if schedErr != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to create gocron scheduler: %w", schedErr)
		}
		if _, jobErr := s.NewJob(
			gocron.DurationJob(opts.Interval),
			gocron.NewTask(w.request),
			gocron.WithName("periodic-rebuild"),
		); jobErr != nil {
			_ = fw.Close()
			_ = s.Shutdown()
			return nil, fmt.Errorf("failed to create periodic rebuild job: %w", jobErr)
		}
		w.sched = s
	}
	return w, nil
}

// Run performs an initial build, then rebuilds on changes until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	w.runBuild(ctx, "initial")

	if w.sched != nil {
		w.sched.Start()
		slog.Info("Periodic rebuild enabled", slog.Duration("interval", w.opts.Interval))
	}
	slog.Info("Watching for changes", logfields.Path(w.opts.Root))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.requests:
				w.runBuild(ctx, "change")
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			<-done
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				<-done
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				<-done
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

// Close stops the filesystem watcher and the scheduler.
func (w *Watcher) Close() error {
	w.stopTimer()
	var result *multierror.Error
	if err := w.fs.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close watcher: %w", err))
	}
	if w.sched != nil {
		if err := w.sched.Shutdown(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Trigger schedules a rebuild after the debounce window; each call restarts
// the window.
func (w *Watcher) Trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.request)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// request enqueues a build unless one is already queued.
func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func (w *Watcher) runBuild(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	slog.Info("Rebuilding site", slog.String("reason", reason))
	if err := w.build(ctx); err != nil {
		slog.Warn("rebuild failed", logfields.Error(err))
		return
	}
	slog.Info("Rebuild complete", slog.Duration("duration", time.Since(start)))
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if w.Ignored(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.Trigger()
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.opts.Root && w.Ignored(path) {
			return filepath.SkipDir
		}
		if addErr := w.fs.Add(path); addErr != nil {
			slog.Warn("watch add failed", logfields.Path(path), logfields.Error(addErr))
		}
		return nil
	})
}

// Ignored reports whether changes to path never trigger a rebuild.
func (w *Watcher) Ignored(path string) bool {
	if isScratchFile(filepath.Base(path)) {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.opts.IgnoreDirs {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.opts.Root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return matchAny(w.opts.Ignore, filepath.ToSlash(rel))
}

// matchAny treats a trailing "/**" as covering the directory itself.
func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "/**"); ok {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
		}
		if ok, err := zglob.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// isScratchFile matches hidden files, editor swap files and OS metadata.
func isScratchFile(base string) bool {
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
