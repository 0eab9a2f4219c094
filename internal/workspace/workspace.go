package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"

	"github.com/hashicorp/go-multierror"

	"git.home.luguber.info/inful/sitevariants/internal/logfields"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Manager hands out staging areas and tracks the ones still alive.
type Manager struct {
	baseDir string
	keep    bool

	mu    sync.Mutex
	areas map[string]struct{}
}

// NewManager creates a manager that places staging areas under baseDir.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir, areas: map[string]struct{}{}}
}

// NewKeepingManager creates a manager whose areas survive Release and Cleanup.
func NewKeepingManager(baseDir string) *Manager {
	m := NewManager(baseDir)
	m.keep = true
	return m
}

// BaseDir returns the directory staging areas are created in.
func (m *Manager) BaseDir() string { return m.baseDir }

// Area is one staging directory.
type Area struct {
	mgr  *Manager
	path string
}

// Path returns the staging root.
func (a *Area) Path() string { return a.path }

// Create makes a new empty staging area for the named variant.
func (m *Manager) Create(variant string) (*Area, error) {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create workspace base directory: %w", err)
	}
	prefix := "sitevariants-"
	if clean := unsafeChars.ReplaceAllString(variant, "_"); clean != "" {
		prefix += clean + "-"
	}
	dir, err := os.MkdirTemp(m.baseDir, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging area: %w", err)
	}

	m.mu.Lock()
	m.areas[dir] = struct{}{}
	m.mu.Unlock()

	slog.Debug("Created staging area", logfields.Variant(variant), logfields.Path(dir))
	return &Area{mgr: m, path: dir}, nil
}

// Release removes the staging area. Releasing twice is a no-op.
func (a *Area) Release() error {
	if a == nil || a.path == "" {
		return nil
	}
	return a.mgr.release(a.path)
}

func (m *Manager) release(dir string) error {
	m.mu.Lock()
	_, live := m.areas[dir]
	delete(m.areas, dir)
	m.mu.Unlock()
	if !live {
		return nil
	}

	if m.keep {
		slog.Info("Keeping staging area", logfields.Path(dir))
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to cleanup staging area %s: %w", dir, err)
	}
	slog.Debug("Removed staging area", logfields.Path(dir))
	return nil
}

// Live returns how many areas have been created and not yet released.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.areas)
}

// Cleanup releases every area still alive and reports all failures together.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	dirs := make([]string, 0, len(m.areas))
	for d := range m.areas {
		dirs = append(dirs, d)
	}
	m.mu.Unlock()

	var errs *multierror.Error
	for _, d := range dirs {
		if err := m.release(d); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
