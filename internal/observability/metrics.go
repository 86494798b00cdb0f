// Package observability records build metrics for workerbuild.
package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxbase-eu/workerbuild/internal/bundle"
	"github.com/fluxbase-eu/workerbuild/internal/wranglerjs"
)

// Metrics holds the Prometheus metrics of one workerbuild process
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal     *prometheus.CounterVec
	buildDuration   prometheus.Histogram
	artifactBytes   *prometheus.GaugeVec
	installsTotal   *prometheus.CounterVec
	lastBuildStatus prometheus.Gauge
}

// NewMetrics creates the metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workerbuild_builds_total",
				Help: "Total number of worker builds by outcome",
			},
			[]string{"status"},
		),
		buildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "workerbuild_build_duration_seconds",
				Help:    "Wall time of a worker build, bundling and assembly included",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		artifactBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "workerbuild_artifact_bytes",
				Help: "Size of the last built artifacts as reported by wrangler-js",
			},
			[]string{"artifact"},
		),
		installsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workerbuild_installs_total",
				Help: "Total number of npm installs by outcome",
			},
			[]string{"status"},
		),
		lastBuildStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "workerbuild_last_build_success",
				Help: "1 if the last build succeeded, 0 otherwise",
			},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordBuild records the outcome of a build. out may be nil when the build
// failed before wrangler-js produced a result.
func (m *Metrics) RecordBuild(duration time.Duration, out *bundle.Output, err error) {
	m.buildsTotal.WithLabelValues(buildStatus(err)).Inc()
	m.buildDuration.Observe(duration.Seconds())

	if err != nil {
		m.lastBuildStatus.Set(0)
		return
	}
	m.lastBuildStatus.Set(1)

	if out != nil {
		m.artifactBytes.WithLabelValues("script").Set(out.ScriptSize)
		if out.HasWasm() {
			m.artifactBytes.WithLabelValues("wasm").Set(out.WasmSize)
		} else {
			m.artifactBytes.DeleteLabelValues("wasm")
		}
	}
}

// RecordInstall records an npm install
func (m *Metrics) RecordInstall(err error) {
	m.installsTotal.WithLabelValues(buildStatus(err)).Inc()
}

// WriteTextfile writes all metrics in the text exposition format to path,
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// buildStatus classifies a build error into a low-cardinality label
func buildStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, wranglerjs.ErrToolFailed):
		return "tool_failed"
	case errors.Is(err, wranglerjs.ErrMalformedOutput):
		return "malformed_output"
	case errors.Is(err, bundle.ErrCleanupFailed):
		return "cleanup_failed"
	case errors.Is(err, bundle.ErrIO):
		return "io_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
