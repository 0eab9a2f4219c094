// Package progress defines the sink that build stages report their progress to.
package progress

import (
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitevariants/internal/logfields"
)

// Sink receives per-task progress. A task is begun once with its expected
// total (0 when unknown), advanced as units complete, and ended once.
type Sink interface {
	Begin(task string, total int)
	Advance(task string, n int)
	End(task string)
}

// Noop discards all progress.
type Noop struct{}

func (Noop) Begin(string, int)   {}
func (Noop) Advance(string, int) {}
func (Noop) End(string)          {}

// LogSink reports task boundaries at Info and intermediate progress at Debug,
// at most once per tenth of the total.
type LogSink struct {
	logger *slog.Logger
	mu     sync.Mutex
	tasks  map[string]*taskState
}

type taskState struct {
	total    int
	done     int
	nextLog  int
	started  time.Time
	reported bool
}

// NewLogSink creates a sink writing to logger (slog.Default when nil).
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, tasks: make(map[string]*taskState)}
}

func (s *LogSink) Begin(task string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task] = &taskState{total: total, nextLog: step(total), started: time.Now()}
	s.logger.Debug("Task started", logfields.Stage(task), logfields.Count(total))
}

func (s *LogSink) Advance(task string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[task]
	if !ok {
		st = &taskState{started: time.Now()}
		s.tasks[task] = st
	}
	st.done += n
	if st.total > 0 && st.done >= st.nextLog && st.done < st.total {
		s.logger.Debug("Task progress", logfields.Stage(task), "done", st.done, "total", st.total)
		st.nextLog += step(st.total)
	}
}

func (s *LogSink) End(task string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[task]
	if !ok || st.reported {
		return
	}
	st.reported = true
	s.logger.Info("Task completed",
		logfields.Stage(task),
		logfields.Count(st.done),
		logfields.DurationMS(float64(time.Since(st.started).Microseconds())/1000))
}

func step(total int) int {
	if total < 10 {
		return 1
	}
	return total / 10
}

// Counter records totals and advances per task; used by tests and reports.
type Counter struct {
	mu     sync.Mutex
	Totals map[string]int
	Done   map[string]int
	Order  []string
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{Totals: map[string]int{}, Done: map[string]int{}}
}

func (c *Counter) Begin(task string, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Totals[task] = total
	c.Order = append(c.Order, task)
}

func (c *Counter) Advance(task string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Done[task] += n
}

func (c *Counter) End(string) {}

// Multi fans progress out to several sinks.
type Multi []Sink

func (m Multi) Begin(task string, total int) {
	for _, s := range m {
		s.Begin(task, total)
	}
}

func (m Multi) Advance(task string, n int) {
	for _, s := range m {
		s.Advance(task, n)
	}
}

func (m Multi) End(task string) {
	for _, s := range m {
		s.End(task)
	}
}
