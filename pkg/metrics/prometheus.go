package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasts     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	historyPoints prometheus.Gauge
	models        prometheus.Gauge
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_forecasts_total",
				Help: "Total number of forecasts generated, by model and result",
			},
			[]string{"model", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		historyPoints: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockcast_history_points",
				Help: "Number of points in the loaded price history",
			},
		),
		models: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockcast_registry_models",
				Help: "Number of models available in the registry",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordForecast counts a forecast attempt; result is "ok" or "error".
func (r *Recorder) RecordForecast(model, result string) {
	r.forecasts.WithLabelValues(model, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordHistorySize records how many points the current history holds.
func (r *Recorder) RecordHistorySize(n int) {
	r.historyPoints.Set(float64(n))
}

// RecordRegistrySize records how many models loaded successfully.
func (r *Recorder) RecordRegistrySize(n int) {
	r.models.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
