// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CartStoreOperationsTotal counts Cart Store operations executed, by operation.
	CartStoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_store_operations_total",
			Help: "Total number of cart store operations executed",
		},
		[]string{"op"},
	)

	// CartGatewayFailuresTotal counts remote cart calls that failed and were
	// swallowed by the store. A non-zero rate means local and remote carts
	// may have diverged until the next full load.
	CartGatewayFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_gateway_failures_total",
			Help: "Total number of failed remote cart gateway calls",
		},
		[]string{"op"},
	)

	// CartSessionsActive tracks storefront sessions holding an in-memory cart.
	CartSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_sessions_active",
			Help: "Number of storefront sessions with an in-memory cart",
		},
	)

	// CartMergeOnLoginTotal counts merge-on-login attempts by outcome.
	CartMergeOnLoginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_merge_on_login_total",
			Help: "Total number of guest-to-user cart merges by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordStoreOperation increments the store operation counter
func RecordStoreOperation(op string) {
	CartStoreOperationsTotal.WithLabelValues(op).Inc()
}

// RecordGatewayFailure increments the gateway failure counter
func RecordGatewayFailure(op string) {
	CartGatewayFailuresTotal.WithLabelValues(op).Inc()
}

// RecordMergeOnLogin increments the merge-on-login counter
func RecordMergeOnLogin(outcome string) {
	CartMergeOnLoginTotal.WithLabelValues(outcome).Inc()
}
