package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the storefront-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests issued.",
		},
		[]string{"method", "path", "status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	apiNetworkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "network_errors_total",
			Help:      "Total number of API requests that failed at the transport layer.",
		},
		[]string{"method", "path"},
	)

	sessionInvalidations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "session",
			Name:      "invalidations_total",
			Help:      "Total number of sessions cleared after credential rejection.",
		},
	)
)

func init() {
	Registry.MustRegister(
		apiRequests,
		apiDuration,
		apiNetworkErrors,
		sessionInvalidations,
	)
}

// ObserveRequest records a completed API request.
func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	apiRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	apiDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveNetworkError records a request that never produced a response.
func ObserveNetworkError(method, path string) {
	apiNetworkErrors.WithLabelValues(method, path).Inc()
}

// ObserveSessionInvalidation records a forced logout.
func ObserveSessionInvalidation() {
	sessionInvalidations.Inc()
}
