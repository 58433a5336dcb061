package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Proxy metrics
var (
	// RequestsTotal counts finished proxy requests by route and status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkdrop_proxy_requests_total",
			Help: "Total number of proxied requests.",
		},
		[]string{"route", "status"},
	)

	// StreamedBytesTotal counts body bytes relayed from the backend to clients.
	StreamedBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkdrop_proxy_streamed_bytes_total",
			Help: "Total number of bytes streamed to clients.",
		},
		[]string{"route"},
	)

	// ActiveStreams is the number of downloads currently being relayed.
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkdrop_proxy_active_streams",
			Help: "Number of download streams currently in flight.",
		},
	)

	// StreamAbortsTotal counts streams that ended before the backend body was exhausted.
	StreamAbortsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkdrop_proxy_stream_aborts_total",
			Help: "Total number of download streams aborted mid-transfer.",
		},
		[]string{"reason"},
	)
)

// Backend metrics
var (
	// UpstreamRequestDuration observes time until the backend answered with headers.
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkdrop_upstream_request_duration_seconds",
			Help:    "Time until the backend returned response headers.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"endpoint"},
	)

	// UpstreamErrorsTotal counts backend calls that failed before a response arrived.
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkdrop_upstream_errors_total",
			Help: "Total number of backend calls that failed at the network level.",
		},
		[]string{"endpoint"},
	)
)

// Stream abort reasons
const (
	AbortClientGone   = "client_gone"
	AbortUpstreamRead = "upstream_error"
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		StreamedBytesTotal,
		ActiveStreams,
		StreamAbortsTotal,
		UpstreamRequestDuration,
		UpstreamErrorsTotal,
	)
}
