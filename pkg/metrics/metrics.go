// Package metrics registers the service's Prometheus collectors at init,
// the way the teacher's pkg/metrics/metrics.go does, and runs a
// self-restarting sidecar HTTP server exposing them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API request metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enkrypt_backend_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enkrypt_backend_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	InjectedErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enkrypt_backend_injected_errors_total",
			Help: "Total number of fault-injection errors served",
		},
		[]string{"status"},
	)

	// Storage metrics
	StorageOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enkrypt_backend_storage_operations_total",
			Help: "Total number of blob store operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	StorageOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enkrypt_backend_storage_operation_duration_seconds",
			Help:    "Blob store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Cluster metrics
	DesiredWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enkrypt_backend_cluster_desired_workers",
			Help: "Desired worker process count computed from the memory budget",
		},
	)

	RunningWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enkrypt_backend_cluster_running_workers",
			Help: "Currently running worker process count",
		},
	)

	ClusterGeneration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enkrypt_backend_cluster_generation",
			Help: "Current worker generation id, incremented on rolling restart",
		},
	)
)

func init() {
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(InjectedErrorsTotal)
	prometheus.MustRegister(StorageOperationsTotal)
	prometheus.MustRegister(StorageOperationDuration)
	prometheus.MustRegister(DesiredWorkers)
	prometheus.MustRegister(RunningWorkers)
	prometheus.MustRegister(ClusterGeneration)
}

// Handler returns the standalone Prometheus HTTP handler, emitting process
// metrics plus this process's own collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
