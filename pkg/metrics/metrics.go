// Package metrics defines the Prometheus collectors used by the pipeline
// stages. Batch runs push them to a Pushgateway on exit; long runs can also
// expose them over HTTP for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline, registered on a
// private registry so each run pushes only its own series.
type Metrics struct {
	Registry *prometheus.Registry

	ReferenceRowsLoaded  *prometheus.CounterVec
	CandidateRowsEncoded *prometheus.CounterVec
	FeatureTriples       *prometheus.CounterVec
	StageDuration        *prometheus.HistogramVec
	RankedDisplays       prometheus.Counter
	MeanAveragePrecision *prometheus.GaugeVec
	SinkFailures         *prometheus.CounterVec
}

// New creates and registers all pipeline metrics.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ReferenceRowsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reference_rows_loaded_total",
				Help: "Rows read from each reference table.",
			},
			[]string{"table"},
		),
		CandidateRowsEncoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidate_rows_encoded_total",
				Help: "Candidate rows written as FFM lines, by mode (train, score).",
			},
			[]string{"mode"},
		),
		FeatureTriples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feature_triples_total",
				Help: "field:key:value triples emitted, by field number.",
			},
			[]string{"field"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stage_duration_seconds",
				Help:    "Wall time of each pipeline step.",
				Buckets: []float64{0.1, 1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
			},
			[]string{"stage"},
		),
		RankedDisplays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ranked_displays_total",
				Help: "Displays ranked by score.",
			},
		),
		MeanAveragePrecision: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mean_average_precision",
				Help: "MAP@K of the last evaluation, by partition and parameter set.",
			},
			[]string{"partition", "params", "k"},
		),
		SinkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_sink_failures_total",
				Help: "Failed deliveries to result sinks.",
			},
			[]string{"sink"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		m.ReferenceRowsLoaded,
		m.CandidateRowsEncoded,
		m.FeatureTriples,
		m.StageDuration,
		m.RankedDisplays,
		m.MeanAveragePrecision,
		m.SinkFailures,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
