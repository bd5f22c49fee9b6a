// Package observability provides Prometheus metrics for the forecast service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/pm25-forecast/internal/common"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec

	Predictions     *prometheus.CounterVec
	PredictedPM25   *prometheus.GaugeVec
	TrainingRuns    *prometheus.CounterVec
	HoldoutRMSE     prometheus.Gauge
	TrainingRows    prometheus.Gauge
	FallbackRows    prometheus.Gauge
	LastTrainedUnix prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pm25_forecast"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound upstream API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of outbound upstream API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		PredictedPM25: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "predicted_pm25",
			Help:      "Most recent next-day PM2.5 prediction per city (µg/m³).",
		}, []string{"city"}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Training runs by outcome.",
		}, []string{"outcome"}),
		HoldoutRMSE: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "holdout_rmse",
			Help:      "Holdout RMSE of the most recent training run.",
		}),
		TrainingRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_rows",
			Help:      "Daily rows used by the most recent training run.",
		}),
		FallbackRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_fallback_rows",
			Help:      "Rows of the most recent training run that used an earliest-value lag fallback.",
		}),
		LastTrainedUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_trained_timestamp_seconds",
			Help:      "Unix time of the most recent successful training run.",
		}),
	}

	reg.MustRegister(
		m.UpstreamRequests,
		m.UpstreamLatency,
		m.Predictions,
		m.PredictedPM25,
		m.TrainingRuns,
		m.HoldoutRMSE,
		m.TrainingRows,
		m.FallbackRows,
		m.LastTrainedUnix,
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(provider string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(provider, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObservePrediction records a prediction outcome and, on success, its value
// under the normalized city name.
func (m *Metrics) ObservePrediction(city, outcome string, value float64) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.PredictedPM25.WithLabelValues(common.NormalizeCity(city)).Set(value)
	}
}

// ObserveTraining records a training run.
func (m *Metrics) ObserveTraining(err error, rmse float64, rows, fallbackRows int, at time.Time) {
	if m == nil {
		return
	}
	if err != nil {
		m.TrainingRuns.WithLabelValues("error").Inc()
		return
	}
	m.TrainingRuns.WithLabelValues("ok").Inc()
	m.HoldoutRMSE.Set(rmse)
	m.TrainingRows.Set(float64(rows))
	m.FallbackRows.Set(float64(fallbackRows))
	m.LastTrainedUnix.Set(float64(at.Unix()))
}
