// Package metrics counts pipeline outcomes and writes them in the Prometheus
// text format for the node exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mediasort/internal/faults"
)

// Recorder owns a private registry so repeated runs and tests never collide
// with the global one. A nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	decisions      *prometheus.CounterVec
	failures       *prometheus.CounterVec
	probeFailures  prometheus.Counter
	relocatedBytes prometheus.Counter
	fileDuration   prometheus.Histogram
	lastRun        prometheus.Gauge
}

// New registers the mediasort collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediasort_decisions_total",
				Help: "Terminal decisions applied to files, by decision",
			},
			[]string{"decision"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediasort_failures_total",
				Help: "Files that could not be finished, by step and error kind",
			},
			[]string{"step", "kind"},
		),
		probeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediasort_probe_failures_total",
			Help: "Files whose resolution could not be probed",
		}),
		relocatedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediasort_relocated_bytes_total",
			Help: "Bytes moved into the output hierarchy",
		}),
		fileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediasort_file_duration_seconds",
			Help:    "Time from presenting a file to applying its decision",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mediasort_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// Registry exposes the private registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveDecision counts one applied decision.
func (r *Recorder) ObserveDecision(decision string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(decision).Inc()
	r.fileDuration.Observe(elapsed.Seconds())
}

// ObserveFailure counts a file that failed at step.
func (r *Recorder) ObserveFailure(step string, kind faults.Kind) {
	if r == nil {
		return
	}
	label := string(kind)
	if label == "" {
		label = string(faults.KindUnknown)
	}
	r.failures.WithLabelValues(step, label).Inc()
}

// ObserveProbeFailure counts a file stored with the unknown resolution.
func (r *Recorder) ObserveProbeFailure() {
	if r == nil {
		return
	}
	r.probeFailures.Inc()
}

// ObserveRelocated adds size bytes to the relocated total.
func (r *Recorder) ObserveRelocated(size int64) {
	if r == nil || size <= 0 {
		return
	}
	r.relocatedBytes.Add(float64(size))
}

// Flush stamps the run end time and writes the registry to path. An empty
// path disables export.
func (r *Recorder) Flush(path string, now time.Time) error {
	if r == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	r.lastRun.Set(float64(now.Unix()))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
