package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes
const (
	OutcomeOK           = "ok"
	OutcomeUnreadable   = "unreadable"
	OutcomeInsufficient = "insufficient_samples"
	OutcomeCancelled    = "cancelled"
	OutcomeError        = "error"
)

// Thumbnail kinds
const (
	ThumbnailFrame    = "frame"
	ThumbnailTextOnly = "text_only"
)

// Metrics holds all Prometheus metrics for analysis runs
type Metrics struct {
	registry *prometheus.Registry

	Analyses        *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	FramesSampled   prometheus.Counter
	FramesSkipped   prometheus.Counter
	ContentTypes    *prometheus.CounterVec
	Thumbnails      *prometheus.CounterVec
}

// Run summarises one analysis call
type Run struct {
	Outcome     string
	Samples     int
	Skipped     int
	Duration    time.Duration
	ContentType string
}

// New creates all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidlens_analyses_total",
				Help: "Total number of analysis runs by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidlens_analysis_duration_seconds",
			Help:    "Wall time of successful analysis runs",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		}),
		FramesSampled: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidlens_frames_sampled_total",
			Help: "Total number of frames decoded for analysis",
		}),
		FramesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidlens_frames_skipped_total",
			Help: "Total number of sample positions that failed to decode",
		}),
		ContentTypes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidlens_content_type_total",
				Help: "Classified content types",
			},
			[]string{"content_type"},
		),
		Thumbnails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidlens_thumbnails_total",
				Help: "Thumbnails produced by kind",
			},
			[]string{"kind"},
		),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one analysis call
func (m *Metrics) ObserveRun(r Run) {
	m.Analyses.WithLabelValues(r.Outcome).Inc()
	m.FramesSampled.Add(float64(r.Samples))
	m.FramesSkipped.Add(float64(r.Skipped))

	if r.Outcome != OutcomeOK {
		return
	}
	m.AnalysisSeconds.Observe(r.Duration.Seconds())
	if r.ContentType != "" {
		m.ContentTypes.WithLabelValues(r.ContentType).Inc()
	}
}

// ObserveThumbnail records a produced thumbnail
func (m *Metrics) ObserveThumbnail(kind string) {
	m.Thumbnails.WithLabelValues(kind).Inc()
}

// WriteTextfile atomically writes all metrics in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
