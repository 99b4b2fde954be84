// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveRegions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spotfence_active_regions",
		Help: "Number of regions the engine believes are currently monitored",
	})
	SyncRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_sync_runs_total",
		Help: "Total synchronization passes executed",
	})
	SyncDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_sync_dropped_total",
		Help: "Synchronization calls dropped by the in-flight guard",
	})
	RegionStartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_region_starts_total",
		Help: "Region start commands issued to the platform",
	})
	RegionStartFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_region_start_failures_total",
		Help: "Region start commands rejected by the platform",
	})
	RegionStopsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_region_stops_total",
		Help: "Region stop commands issued to the platform",
	})
	TeardownsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_teardowns_total",
		Help: "Full monitoring teardowns (global disable or permission regression)",
	})
	NotificationsFiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_notifications_fired_total",
		Help: "Proximity notifications delivered",
	})
	NotificationsSuppressedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_notifications_suppressed_total",
		Help: "Proximity notifications suppressed by the cooldown",
	})
	BookkeepingAnomaliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotfence_bookkeeping_anomalies_total",
		Help: "Region-entry events dropped because no bookkeeping entry exists",
	})
)

func init() {
	prometheus.MustRegister(ActiveRegions)
	prometheus.MustRegister(SyncRunsTotal)
	prometheus.MustRegister(SyncDroppedTotal)
	prometheus.MustRegister(RegionStartsTotal)
	prometheus.MustRegister(RegionStartFailuresTotal)
	prometheus.MustRegister(RegionStopsTotal)
	prometheus.MustRegister(TeardownsTotal)
	prometheus.MustRegister(NotificationsFiredTotal)
	prometheus.MustRegister(NotificationsSuppressedTotal)
	prometheus.MustRegister(BookkeepingAnomaliesTotal)
}

// Handler returns the Prometheus scrape handler mounted on the API server.
func Handler() http.Handler { return promhttp.Handler() }
