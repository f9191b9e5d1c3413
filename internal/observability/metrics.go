package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	messagesSentTotal     *prometheus.CounterVec
	reactionsToggledTotal *prometheus.CounterVec
	searchLatencySeconds  prometheus.Histogram
	presencePingsTotal    prometheus.Counter
	realtimeConnections   prometheus.Gauge
	fileUploadsTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of messages stored, labelled text or file.",
		}, []string{"kind"})

		reactionsToggledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_reactions_toggled_total",
			Help: "Total number of reaction toggles, labelled added or removed.",
		}, []string{"action"})

		searchLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_search_latency_seconds",
			Help:    "Latency distribution for message search queries.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		})

		presencePingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_presence_pings_total",
			Help: "Total number of presence heartbeats received.",
		})

		realtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_realtime_connections",
			Help: "Number of currently connected realtime subscribers.",
		})

		fileUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_file_uploads_total",
			Help: "Total number of stored attachments by detected MIME type.",
		}, []string{"mime"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			messagesSentTotal,
			reactionsToggledTotal,
			searchLatencySeconds,
			presencePingsTotal,
			realtimeConnections,
			fileUploadsTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// MessagesSent exposes the sent-message counter.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// ReactionsToggled exposes the reaction toggle counter.
func ReactionsToggled() *prometheus.CounterVec {
	RegisterMetrics()
	return reactionsToggledTotal
}

// SearchLatency exposes the search latency histogram.
func SearchLatency() prometheus.Histogram {
	RegisterMetrics()
	return searchLatencySeconds
}

// PresencePings exposes the heartbeat counter.
func PresencePings() prometheus.Counter {
	RegisterMetrics()
	return presencePingsTotal
}

// RealtimeConnections exposes the live subscriber gauge.
func RealtimeConnections() prometheus.Gauge {
	RegisterMetrics()
	return realtimeConnections
}

// FileUploads exposes the upload counter.
func FileUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return fileUploadsTotal
}
