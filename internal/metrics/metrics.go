// Package metrics registers the Prometheus collectors the engine exposes on
// /metrics, grounded on xentoshi-lake's direct prometheus/client_golang
// dependency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TaxisBusy = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taxis_busy",
		Help: "Current number of taxis with status busy.",
	})
	OrdersPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orders_pending",
		Help: "Current number of orders with status pending.",
	})
	OrdersCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Total number of orders that have completed.",
	})
	AssignmentsMadeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignments_made_total",
		Help: "Total number of taxi-order assignments committed.",
	})
	RoutingFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routing_fallback_total",
		Help: "Total number of routing calls that exhausted retries and returned the fallback route.",
	})
	RoutingRetryTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routing_retry_total",
		Help: "Total number of routing attempts that failed, including the last attempt before a fallback.",
	})
	BroadcastSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_subscribers",
		Help: "Current number of connected broadcast subscribers.",
	})
)

func init() {
	prometheus.MustRegister(
		TaxisBusy,
		OrdersPending,
		OrdersCompletedTotal,
		AssignmentsMadeTotal,
		RoutingFallbackTotal,
		RoutingRetryTotal,
		BroadcastSubscribers,
	)
}
