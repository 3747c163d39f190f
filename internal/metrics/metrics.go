package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters.
type Metrics struct {
	CheckoutsStarted     prometheus.Counter
	OrdersCommitted      prometheus.Counter
	CheckoutsFailed      prometheus.Counter
	PaymentTimeouts      prometheus.Counter
	ReconciliationAlerts prometheus.Counter
	HTTPServerReqs       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		CheckoutsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "The total number of checkout attempts started.",
		}),
		OrdersCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkout_orders_committed_total",
			Help: "The total number of orders committed.",
		}),
		CheckoutsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkout_failures_total",
			Help: "The total number of checkout attempts that ended in FAILED.",
		}),
		PaymentTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkout_payment_timeouts_total",
			Help: "The total number of bank-transfer checkouts with no payment detected.",
		}),
		ReconciliationAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkout_reconciliation_alerts_total",
			Help: "Payments confirmed whose order write failed; requires manual support intervention.",
		}),
		HTTPServerReqs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_http_requests_total",
			Help: "The total number of HTTP requests.",
		}, []string{"code", "method"}),
	}
}

// Handler returns the http.Handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
