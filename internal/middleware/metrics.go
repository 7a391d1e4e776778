package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the storefront's Prometheus collectors.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	// CartAdds counts add-to-cart attempts by outcome: added, invalid, failed.
	CartAdds *prometheus.CounterVec

	// DeliveryRefreshes counts scheduled availability refreshes by outcome: ok, failed.
	DeliveryRefreshes *prometheus.CounterVec

	// UpstreamBreaker is the store circuit breaker state (0=closed, 1=half-open, 2=open).
	UpstreamBreaker prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "storefront_http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
		CartAdds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cart_adds_total",
				Help: "Add-to-cart attempts by outcome",
			},
			[]string{"outcome"},
		),
		DeliveryRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_delivery_refreshes_total",
				Help: "Delivery availability refreshes by outcome",
			},
			[]string{"outcome"},
		),
		UpstreamBreaker: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "storefront_upstream_breaker_state",
				Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
		),
	}
}

// Handler returns middleware that collects HTTP metrics.
// Requests are labeled by the matched ServeMux pattern to keep cardinality bounded.
func (m *Metrics) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.requestsInFlight.Inc()
			defer m.requestsInFlight.Dec()

			rw := wrapped(w)
			next.ServeHTTP(rw, r)

			// ServeMux records the matched pattern on the request it was handed.
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}

			m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
			m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
