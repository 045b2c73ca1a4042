// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MatchAttempts counts product resolution attempts by method and outcome
	MatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "winefeed",
		Subsystem: "matching",
		Name:      "attempts_total",
		Help:      "Product identity resolution attempts by method and status.",
	}, []string{"method", "status"})

	// OrderTransitions counts applied order status transitions
	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "winefeed",
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Applied order status transitions by from and to status.",
	}, []string{"from", "to"})

	// OffersAccepted counts successful offer acceptances
	OffersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winefeed",
		Subsystem: "offers",
		Name:      "accepted_total",
		Help:      "Offers accepted.",
	})

	// OffersExpired counts offers closed by the expiry sweep
	OffersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winefeed",
		Subsystem: "offers",
		Name:      "expired_total",
		Help:      "Offers expired by the background sweep.",
	})

	// WineRefLookupDuration observes latency of external reference lookups
	WineRefLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "winefeed",
		Subsystem: "wineref",
		Name:      "lookup_duration_seconds",
		Help:      "Latency of wine reference lookups.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler returns the HTTP handler serving the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
