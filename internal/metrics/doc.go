// Package metrics provides the observability hooks for variant builds.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	exec := &pipeline.Executor{Recorder: metrics.NoopRecorder{}}
//
// The CLI swaps in a PrometheusRecorder when --metrics-file is given and writes
// the registry in the node_exporter textfile format once the build finishes:
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	// ... build ...
//	_ = metrics.WriteTextfile(reg, path)
package metrics
