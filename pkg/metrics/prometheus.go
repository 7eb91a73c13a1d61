package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsIngested *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	compositeScore *prometheus.GaugeVec
	recomputeTime  *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_events_ingested_total",
				Help: "Total number of indicator events processed by result",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		compositeScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macropulse_composite_score",
				Help: "Latest external composite score per asset",
			},
			[]string{"asset"},
		),
		recomputeTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropulse_recompute_duration_seconds",
				Help:    "Duration of per-asset recompute in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"asset"},
		),
	}
}

// RecordIngest records an ingestion outcome (accepted, duplicate, rejected).
func (r *Recorder) RecordIngest(result string) {
	r.eventsIngested.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordComposite records the latest external composite score for an asset.
func (r *Recorder) RecordComposite(asset string, score float64) {
	r.compositeScore.WithLabelValues(asset).Set(score)
}

// RecordRecompute records recompute latency for an asset in seconds.
func (r *Recorder) RecordRecompute(asset string, seconds float64) {
	r.recomputeTime.WithLabelValues(asset).Observe(seconds)
}
