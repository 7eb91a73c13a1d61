package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// APILatency tracks latency of scoring API endpoints.
	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "macropulse",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// APIErrors counts errors by endpoint.
	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "macropulse",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint",
		},
		[]string{"endpoint"},
	)
)

// Register registers the API metric vectors once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors)
	})
}
