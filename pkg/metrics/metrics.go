// Package metrics holds the prometheus collectors exported at /metrics
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meagent"

var (
	// HTTPRequestsTotal counts requests served by the widget API
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	// RedemptionsTotal counts redemption attempts by strategy and outcome
	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redemption",
			Name:      "attempts_total",
			Help:      "Redemption attempts by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	RedemptionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redemption",
			Name:      "duration_seconds",
			Help:      "End to end duration of redemption attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"strategy"},
	)

	// RefundsTotal counts compensating refund calls by result
	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redemption",
			Name:      "refunds_total",
			Help:      "Compensating refund calls by result.",
		},
		[]string{"result"},
	)

	// UpstreamRequestsTotal counts calls to backend, wallet and relay upstreams
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Calls to upstream APIs by upstream and status.",
		},
		[]string{"upstream", "status"},
	)

	WalletAddressRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "address_retries_total",
			Help:      "Wallet address fetch retries after a failed attempt.",
		},
	)

	// ActiveSessionsGauge tracks live widget sessions
	ActiveSessionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "active_sessions",
			Help:      "Widget sessions currently held in memory.",
		},
	)

	SessionsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "sessions_evicted_total",
			Help:      "Idle widget sessions removed by the janitor.",
		},
	)

	CatalogCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_lookups_total",
			Help:      "Catalog cache lookups by kind and result.",
		},
		[]string{"kind", "result"},
	)

	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Ledger database connections by state.",
		},
		[]string{"state"},
	)
)

// GinMiddleware records request counts and latency per route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
