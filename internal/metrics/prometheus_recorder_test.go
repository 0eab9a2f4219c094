package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("nojs", "stage", 150*time.Millisecond)
	pr.ObserveVariantDuration("nojs", 300*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("stage", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.AddRouteDecisions("nojs", "copy", 4)
	pr.AddActionFiles("nojs", "render", 2)
	pr.IncMountClobber("")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"sitevariants_stage_duration_seconds",
		"sitevariants_route_decisions_total",
		"sitevariants_action_files_total",
		"sitevariants_mount_clobbers_total",
		"sitevariants_build_outcomes_total",
	} {
		assert.True(t, names[want], want)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveStageDuration("v", "s", time.Second)
		pr.AddActionFiles("v", "a", 1)
		pr.IncBuildOutcome(BuildOutcomeFailed)
	})
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.AddActionFiles("full", "rewrite-mount-links", 3)

	path := filepath.Join(t.TempDir(), "sitevariants.prom")
	require.NoError(t, WriteTextfile(reg, path))
	// #nosec G304 - test file
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `sitevariants_action_files_total{action="rewrite-mount-links",variant="full"} 3`))
}
