// Package metrics holds the Prometheus collectors of the gateway:
//   - gateway_http_requests_total / gateway_http_request_duration_seconds for inbound traffic
//   - gateway_backend_requests_total / gateway_backend_request_duration_seconds for calls to the hospital backend
//   - gateway_transitions_total for status lifecycle outcomes
//   - gateway_reference_lookups_total for reference resolver fetches
//
// Collectors are registered with the default registry at init.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total HTTP requests served by the gateway",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "Gateway request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_http_requests_in_flight",
			Help: "Current in-flight gateway requests",
		},
	)

	BackendRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_backend_requests_total",
			Help: "Requests sent to the hospital backend, by outcome",
		},
		[]string{"method", "outcome"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_backend_request_duration_seconds",
			Help:    "Hospital backend latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	TransitionTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_transitions_total",
			Help: "Status transitions attempted, by entity and result",
		},
		[]string{"entity", "result"},
	)

	ReferenceLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_reference_lookups_total",
			Help: "Reference resolver fetches, by kind and result",
		},
		[]string{"kind", "result"},
	)

	Workspaces = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_workspaces_open",
			Help: "Open session workspaces",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(BackendRequestTotals)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(TransitionTotals)
	prometheus.MustRegister(ReferenceLookups)
	prometheus.MustRegister(Workspaces)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
