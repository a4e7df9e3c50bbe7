// Package metrics defines the Prometheus collectors for the collection
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons recorded on records_skipped_total.
const (
	ReasonMalformed    = "malformed"
	ReasonDuplicate    = "duplicate"
	ReasonLowRelevance = "low_relevance"
	ReasonGeneral      = "general"
)

// Metrics holds all Prometheus collectors for the pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RecordsFetchedTotal  *prometheus.CounterVec
	RecordsSkippedTotal  *prometheus.CounterVec
	RecordsArchivedTotal prometheus.Counter
	PipelineRunsTotal    *prometheus.CounterVec
	PipelineDuration     prometheus.Histogram
}

// New creates all pipeline metrics and registers them on reg. A nil reg
// falls back to the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		RecordsFetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_records_fetched_total",
				Help: "Raw records fetched per source before filtering.",
			},
			[]string{"source"},
		),
		RecordsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_records_skipped_total",
				Help: "Records dropped per reason (malformed, duplicate, low_relevance, general).",
			},
			[]string{"reason"},
		),
		RecordsArchivedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "news_records_archived_total",
				Help: "Records newly written to the archive.",
			},
		),
		PipelineRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_pipeline_runs_total",
				Help: "Pipeline executions by outcome (success, error).",
			},
			[]string{"status"},
		),
		PipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "news_pipeline_duration_seconds",
				Help:    "Wall time of a full pipeline run.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
	}

	reg.MustRegister(
		m.RecordsFetchedTotal,
		m.RecordsSkippedTotal,
		m.RecordsArchivedTotal,
		m.PipelineRunsTotal,
		m.PipelineDuration,
	)

	return m
}

// Fetched adds n to the per-source fetch counter.
func (m *Metrics) Fetched(source string, n int) {
	if m == nil {
		return
	}
	m.RecordsFetchedTotal.WithLabelValues(source).Add(float64(n))
}

// Skipped adds n to the per-reason skip counter.
func (m *Metrics) Skipped(reason string, n int) {
	if m == nil {
		return
	}
	m.RecordsSkippedTotal.WithLabelValues(reason).Add(float64(n))
}

// Archived adds n to the archived-records counter.
func (m *Metrics) Archived(n int) {
	if m == nil {
		return
	}
	m.RecordsArchivedTotal.Add(float64(n))
}

// RunCompleted records one pipeline execution with its outcome and wall
// time.
func (m *Metrics) RunCompleted(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(elapsed.Seconds())
}

// Handler returns the scrape handler for a gatherer. A nil gatherer falls
// back to the default one.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ListenAddr formats the scrape listen address for a configured port.
func ListenAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}
