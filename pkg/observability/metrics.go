// Package observability provides Prometheus metrics for the xsr client
// and HTTP middleware for the far-end server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// CallbackBuckets defines histogram buckets for callback round trips,
// ranging from 10ms to 60s.
var CallbackBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

var (
	// BackendRequestsTotal counts far-end HTTP requests by method, path
	// and status class.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xsr_backend_requests_total",
			Help: "Far-end requests",
		},
		[]string{"method", "path", "status"},
	)

	// BackendRequestDuration records far-end request duration in seconds.
	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xsr_backend_request_duration_seconds",
			Help:    "Far-end request duration",
			Buckets: CallbackBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		BackendRequestsTotal,
		BackendRequestDuration,
	)
}
