package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the pipeline's operational metrics via Prometheus.
type Recorder struct {
	predictionsMade *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	accuracy        *prometheus.GaugeVec
	lastConfidence  *prometheus.GaugeVec
	retrains        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on a caller-owned registry, so
// tests can build isolated recorders.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		predictionsMade: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_predictions_total",
				Help: "Total number of predictions produced",
			},
			[]string{"region"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		accuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_daily_accuracy",
				Help: "Latest evaluated directional accuracy per region",
			},
			[]string{"region"},
		),
		lastConfidence: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_mean_confidence",
				Help: "Mean confidence of the latest prediction batch",
			},
			[]string{"region"},
		),
		retrains: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_retrains_total",
				Help: "Total retraining attempts by outcome",
			},
			[]string{"region", "outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPrediction counts one produced prediction for a region.
func (r *Recorder) RecordPrediction(region string) {
	r.predictionsMade.WithLabelValues(region).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAccuracy records the latest evaluated accuracy fraction for a region.
func (r *Recorder) RecordAccuracy(region string, accuracy float64) {
	r.accuracy.WithLabelValues(region).Set(accuracy)
}

// RecordConfidence records the mean confidence of the latest batch.
func (r *Recorder) RecordConfidence(region string, confidence float64) {
	r.lastConfidence.WithLabelValues(region).Set(confidence)
}

// RecordRetrain counts a retraining attempt. Outcome is "ok", "failed" or
// "restored".
func (r *Recorder) RecordRetrain(region, outcome string) {
	r.retrains.WithLabelValues(region, outcome).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
