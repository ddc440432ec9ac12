// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is local so tests and embedded servers do not collide with the global one.
var Registry = prometheus.NewRegistry()

var (
	GeneratorRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_generator_requests_total",
			Help: "Total number of generator calls, partitioned by backend and outcome.",
		},
		[]string{"backend", "status"},
	)
	GeneratorLatency = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saga_generator_request_duration_seconds",
			Help:    "Latency of generator calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"backend"},
	)
	SessionsStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_sessions_started_total",
			Help: "Total number of started story sessions.",
		},
		[]string{"story"},
	)
	Continuations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_continuations_total",
			Help: "Total number of continue requests, partitioned by outcome kind.",
		},
		[]string{"outcome"},
	)
	SessionsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_sessions_completed_total",
			Help: "Total number of sessions that reached their ending.",
		},
		[]string{"story"},
	)
	InterpreterStrategy = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_interpreter_results_total",
			Help: "Generator replies interpreted, partitioned by parse strategy.",
		},
		[]string{"strategy"},
	)
	HTTPRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_http_requests_total",
			Help: "HTTP requests handled, partitioned by method and status code.",
		},
		[]string{"method", "code"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
