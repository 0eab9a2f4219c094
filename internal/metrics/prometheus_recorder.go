package metrics

import (
	"fmt"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitevariants"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	stageDuration   *prom.HistogramVec
	variantDuration *prom.HistogramVec
	buildDuration   prom.Histogram
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	routeDecisions  *prom.CounterVec
	actionFiles     *prom.CounterVec
	mountClobbers   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual variant stages",
			Buckets:   prom.DefBuckets,
		}, []string{"variant", "stage"})
		pr.variantDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "variant_duration_seconds",
			Help:      "Duration of one variant from staging to mount",
			Buckets:   prom.DefBuckets,
		}, []string{"variant"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.routeDecisions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "route_decisions_total",
			Help:      "Source files by routing outcome",
		}, []string{"variant", "outcome"})
		pr.actionFiles = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "action_files_total",
			Help:      "Files processed per transform action",
		}, []string{"variant", "action"})
		pr.mountClobbers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mount_clobbers_total",
			Help:      "Mounts merged over existing content",
		}, []string{"mount"})
		reg.MustRegister(pr.stageDuration, pr.variantDuration, pr.buildDuration, pr.stageResults,
			pr.buildOutcome, pr.routeDecisions, pr.actionFiles, pr.mountClobbers)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(variant, stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(variant, stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveVariantDuration(variant string, d time.Duration) {
	if p == nil || p.variantDuration == nil {
		return
	}
	p.variantDuration.WithLabelValues(variant).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddRouteDecisions(variant, outcome string, n int) {
	if p == nil || p.routeDecisions == nil || n <= 0 {
		return
	}
	p.routeDecisions.WithLabelValues(variant, outcome).Add(float64(n))
}

func (p *PrometheusRecorder) AddActionFiles(variant, action string, n int) {
	if p == nil || p.actionFiles == nil || n <= 0 {
		return
	}
	p.actionFiles.WithLabelValues(variant, action).Add(float64(n))
}

func (p *PrometheusRecorder) IncMountClobber(mount string) {
	if p == nil || p.mountClobbers == nil {
		return
	}
	p.mountClobbers.WithLabelValues(mount).Inc()
}

// WriteTextfile writes every metric in g to path in the Prometheus text format,
// for pickup by a node_exporter textfile collector.
func WriteTextfile(g prom.Gatherer, path string) error {
	if err := prom.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
