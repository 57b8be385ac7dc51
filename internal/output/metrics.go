/*
PURPOSE:
  Prometheus metrics for one evaluation run.

REQUIREMENTS:
  User-specified:
  - Optional run statistics for node_exporter's textfile collector.

  Implementation-discovered:
  - Each run owns a registry so tests and repeated runs never collide.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Uses: prometheus/client_golang

ERROR HANDLING:
  - WriteTextfile returns the write error; the runner logs it.

IMPLEMENTATION RULES:
  - Label values are bounded: outcomes, reasons and metric names.

USAGE:
  m := output.NewRunMetrics()
  m.ChannelDone("evaluated")

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/runner.go

MAINTENANCE:
  - Keep metric names prefixed forest_eval_.
*/

package output

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics counts what one evaluation run did. It owns its registry so a
// run can be exported to a node_exporter textfile without touching the
// default registry.
type RunMetrics struct {
	registry *prometheus.Registry

	Channels        *prometheus.CounterVec
	ModelsSkipped   *prometheus.CounterVec
	Evaluations     *prometheus.CounterVec
	Scores          *prometheus.HistogramVec
	MeasureDuration *prometheus.HistogramVec
}

// NewRunMetrics creates and registers the run metrics on a fresh registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		Channels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forest_eval_channels_total",
				Help: "Channels seen by outcome",
			},
			[]string{"outcome"},
		),
		ModelsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forest_eval_models_skipped_total",
				Help: "Model outputs skipped by reason",
			},
			[]string{"reason"},
		),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forest_eval_metric_evaluations_total",
				Help: "Metric evaluations by metric and status",
			},
			[]string{"metric", "status"},
		),
		Scores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forest_eval_metric_score",
				Help:    "Distribution of successful metric scores",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"metric"},
		),
		MeasureDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forest_eval_metric_duration_seconds",
				Help:    "Duration of metric evaluations in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"metric"},
		),
	}
	m.registry.MustRegister(m.Channels, m.ModelsSkipped, m.Evaluations, m.Scores, m.MeasureDuration)
	return m
}

// Registry exposes the run registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ChannelDone counts a channel outcome.
func (m *RunMetrics) ChannelDone(outcome string) {
	m.Channels.WithLabelValues(outcome).Inc()
}

// ModelSkipped counts a skipped model output.
func (m *RunMetrics) ModelSkipped(reason string) {
	m.ModelsSkipped.WithLabelValues(reason).Inc()
}

// Observe records one metric evaluation. A nil score is a failure.
func (m *RunMetrics) Observe(metric string, score *float64, took time.Duration) {
	m.MeasureDuration.WithLabelValues(metric).Observe(took.Seconds())
	if score == nil {
		m.Evaluations.WithLabelValues(metric, "failed").Inc()
		return
	}
	m.Evaluations.WithLabelValues(metric, "ok").Inc()
	m.Scores.WithLabelValues(metric).Observe(*score)
}

// WriteTextfile writes the registry in text exposition format.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}
