// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "ecoflow_ops_"

var (
	PollTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "poll_ticks_total",
			Help: "Poll ticks by outcome (committed, stale, failed)",
		},
		[]string{"outcome"},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "poll_tick_seconds",
			Help:    "Wall time of one fetch-and-derive cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	UpstreamFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "upstream_fetch_failures_total",
			Help: "Failed upstream fetches within poll batches, by slot",
		},
		[]string{"slot"},
	)

	ProxyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "proxy_requests_total",
			Help: "Passthrough proxy requests by route and upstream status class",
		},
		[]string{"route", "status"},
	)

	ActiveAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: metricPrefix + "active_alerts",
			Help: "Active alerts in the last committed snapshot",
		},
	)

	CriticalZones = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: metricPrefix + "critical_zones",
			Help: "Zones at critical density in the last committed snapshot",
		},
	)
)

// Register installs all gateway collectors on the default registry. Call
// once at startup.
func Register() {
	prometheus.MustRegister(
		PollTicks,
		PollDuration,
		UpstreamFailures,
		ProxyRequests,
		ActiveAlerts,
		CriticalZones,
	)
}

// Handler serves the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
