package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	publishLatencySeconds *prometheus.HistogramVec
	publishedObjectsTotal prometheus.Counter
	submissionsTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the submission pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		publishLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "site_publish_duration_seconds",
			Help:    "Time spent extracting, normalizing and uploading a submitted site.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"})

		publishedObjectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_published_objects_total",
			Help: "Number of files uploaded to object storage for submitted sites.",
		})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Submissions processed, by source kind and final status.",
		}, []string{"kind", "status"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			publishLatencySeconds,
			publishedObjectsTotal,
			submissionsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// PublishLatency exposes the histogram for site publishing.
func PublishLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return publishLatencySeconds
}

// PublishedObjects exposes the counter of uploaded site files.
func PublishedObjects() prometheus.Counter {
	RegisterMetrics()
	return publishedObjectsTotal
}

// Submissions exposes the counter of finished submissions.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}
