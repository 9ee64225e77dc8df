package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zanara",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zanara",
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by edge.",
		},
		[]string{"from", "to"},
	)

	connectionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zanara",
			Name:      "connection_requests_total",
			Help:      "Connection request operations by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingTransitions, connectionRequests)
	})
}

// IncHTTP increments the counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncBookingTransition increments the counter for one lifecycle edge.
func IncBookingTransition(from, to string) {
	bookingTransitions.WithLabelValues(from, to).Inc()
}

// IncConnectionRequest increments the counter for an outcome label.
func IncConnectionRequest(outcome string) {
	connectionRequests.WithLabelValues(outcome).Inc()
}
