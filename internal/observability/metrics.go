package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	relayConnections *prometheus.GaugeVec
	relayMessages    *prometheus.CounterVec
	relayDropped     prometheus.Counter

	uploadRequests *prometheus.CounterVec
	uploadRejected *prometheus.CounterVec
	uploadLatency  prometheus.Histogram

	gradingTotal *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcquest_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gcquest_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcquest_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		relayConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gcquest_relay_connections",
			Help: "Open websocket relay connections by role.",
		}, []string{"role"})

		relayMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcquest_relay_messages_total",
			Help: "Relay messages delivered to local subscribers by origin.",
		}, []string{"origin"})

		relayDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gcquest_relay_dropped_total",
			Help: "Relay messages dropped because a client queue was full.",
		})

		uploadRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcquest_upload_requests_total",
			Help: "Accepted uploads by detected type.",
		}, []string{"type"})

		uploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcquest_upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gcquest_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		gradingTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcquest_grading_total",
			Help: "Graded submissions by resulting status and trigger.",
		}, []string{"status", "trigger"})

		cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcquest_cache_lookups_total",
			Help: "Cache lookups by namespace and result.",
		}, []string{"namespace", "result"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			relayConnections, relayMessages, relayDropped,
			uploadRequests, uploadRejected, uploadLatency,
			gradingTotal, cacheLookups,
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

// RelayConnections exposes the open relay connection gauge.
func RelayConnections() *prometheus.GaugeVec {
	RegisterMetrics()
	return relayConnections
}

// RelayMessages exposes the relay delivery counter.
func RelayMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return relayMessages
}

// RelayDropped exposes the slow-consumer drop counter.
func RelayDropped() prometheus.Counter {
	RegisterMetrics()
	return relayDropped
}

// UploadRequests exposes the accepted upload counter.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequests
}

// UploadRejected exposes the rejected upload counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejected
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}

// Grading exposes the grading counter.
func Grading() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingTotal
}

// CacheLookups exposes the cache hit/miss counter.
func CacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheLookups
}
