package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	metricRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digibank_gateway_requests_total",
			Help: "Requests handled by the gateway dispatcher by route and status",
		},
		[]string{"route", "status"},
	)
	metricLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digibank_gateway_request_duration_seconds",
			Help:    "Time from dispatch to the end of the forwarded response",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// InitMetrics registers the dispatcher metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(metricRequests, metricLatency)
}
