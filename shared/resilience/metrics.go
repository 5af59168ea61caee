package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digibank_downstream_outcomes_total",
			Help: "Resilient client outcomes by downstream client and status",
		},
		[]string{"client", "status"},
	)
)

// InitMetrics registers the resilient client metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(metricOutcomes)
}
