package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecastlab_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecastlab_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecastlab_runs_total",
		Help: "Total number of forecast runs by model kind and result",
	}, []string{"kind", "result"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecastlab_run_duration_seconds",
		Help:    "Duration of successful forecast runs in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})

	lastMAE = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "forecastlab_last_mae",
		Help: "Mean absolute error of the most recent run by model kind",
	}, []string{"kind"})

	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forecastlab_uploads_total",
		Help: "Total number of series loads by source and result",
	}, []string{"source", "result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forecastlab_active_sessions",
		Help: "Number of sessions held in memory",
	})
)

const (
	resultSuccess    = "success"
	resultError      = "error"
	resultIncomplete = "incomplete"
)

// RecordHTTPRequest records the count and latency of a handled request
func RecordHTTPRequest(method, path string, duration time.Duration, status int) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRun records the outcome of a forecast run
func RecordRun(kind, result string, duration time.Duration, mae float64) {
	runsTotal.WithLabelValues(kind, result).Inc()
	if result == resultSuccess {
		runDuration.WithLabelValues(kind).Observe(duration.Seconds())
		lastMAE.WithLabelValues(kind).Set(mae)
	}
}

// RecordUpload records a series load
func RecordUpload(source, result string) {
	uploadsTotal.WithLabelValues(source, result).Inc()
}
