package build

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitevariants/internal/git"
	"git.home.luguber.info/inful/sitevariants/internal/pipeline"
)

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusWarning   BuildStatus = "warning"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the deploy tree was fully produced.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess || s == BuildStatusWarning
}

// Report summarises one build.
type Report struct {
	BuildID   string          `yaml:"build_id"`
	StartedAt time.Time       `yaml:"started_at"`
	Duration  time.Duration   `yaml:"duration"`
	Status    BuildStatus     `yaml:"status"`
	Error     string          `yaml:"error,omitempty"`
	Source    *git.SourceInfo `yaml:"source,omitempty"`
	Deploy    string          `yaml:"deploy"`
	Variants  []VariantReport `yaml:"variants"`
}

// VariantReport summarises one variant run.
type VariantReport struct {
	Name      string         `yaml:"name"`
	Mount     string         `yaml:"mount"`
	State     string         `yaml:"state"`
	Staged    StagedCounts   `yaml:"staged"`
	Batches   int            `yaml:"batches"`
	Parses    int            `yaml:"parses"`
	Writes    int            `yaml:"writes"`
	Removed   int            `yaml:"removed"`
	Vanished  int            `yaml:"vanished"`
	Warnings  int            `yaml:"warnings"`
	Counters  map[string]int `yaml:"counters,omitempty"`
	Mounted   int            `yaml:"mounted_files"`
	Clobbered bool           `yaml:"clobbered"`
	Duration  time.Duration  `yaml:"duration"`
}

// StagedCounts mirrors the routing outcome of the staging pass.
type StagedCounts struct {
	Files     int `yaml:"files"`
	Copied    int `yaml:"copied"`
	Discarded int `yaml:"discarded"`
	Unmatched int `yaml:"unmatched"`
}

func variantReport(res *pipeline.Result) VariantReport {
	return VariantReport{
		Name:  res.Variant,
		Mount: res.Mount,
		State: res.State.String(),
		Staged: StagedCounts{
			Files:     res.Stage.Files,
			Copied:    res.Stage.Copied,
			Discarded: res.Stage.Discarded,
			Unmatched: res.Stage.Unmatched,
		},
		Batches:   res.Stats.Batches,
		Parses:    res.Stats.Parses,
		Writes:    res.Stats.Writes,
		Removed:   res.Stats.Removed,
		Vanished:  res.Stats.Vanished,
		Warnings:  res.Stats.Warnings,
		Counters:  res.Stats.Counters,
		Mounted:   res.Mounted.Files,
		Clobbered: res.Mounted.Clobbered,
		Duration:  res.Duration,
	}
}

// Warnings totals the warnings of every variant.
func (r *Report) Warnings() int {
	n := 0
	for _, v := range r.Variants {
		n += v.Warnings
	}
	return n
}

// WriteYAML writes the report to path, creating parent directories.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal build report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write build report: %w", err)
	}
	return nil
}
