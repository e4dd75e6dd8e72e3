// README: Prometheus collectors for the API, registered on a dedicated registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry served at /metrics.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PricingQuotes counts quote computations by outcome (ok, no_rule, invalid).
	PricingQuotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pricing_quotes_total", Help: "Pricing quotes by outcome."},
		[]string{"outcome"},
	)
	ParcelTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "parcel_transitions_total", Help: "Parcel status and payment transitions by target state."},
		[]string{"to"},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_total", Help: "Notification sends by channel and status."},
		[]string{"channel", "status"},
	)
	PaymentGatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "payment_gateway_calls_total", Help: "Payment gateway calls by operation and status."},
		[]string{"op", "status"},
	)
)

// RegisterDefault registers all collectors on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PricingQuotes)
		Registry.MustRegister(ParcelTransitions)
		Registry.MustRegister(Notifications)
		Registry.MustRegister(PaymentGatewayCalls)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
