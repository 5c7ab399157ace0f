package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PricingRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_runs_total",
		Help: "Total number of pricing batch runs started",
	})

	PricingRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_run_duration_seconds",
		Help:    "Wall-clock duration of pricing batch runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	HotelsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_hotels_processed_total",
		Help: "Total number of hotels processed by pricing runs",
	})

	HotelsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_hotels_failed_total",
		Help: "Total number of hotels that failed during pricing runs",
	}, []string{"reason"})

	InventoryUpsertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_upserts_total",
		Help: "Total number of inventory records upserted",
	})

	SyncRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "channel_sync_runs_total",
		Help: "Total number of channel sync batch runs started",
	})

	SyncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "channel_sync_run_duration_seconds",
		Help:    "Wall-clock duration of channel sync batch runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	ConnectionsSyncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "channel_connections_synced_total",
		Help: "Total number of connections whose inventory push succeeded",
	})

	ConnectionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channel_connections_failed_total",
		Help: "Total number of connections that failed to sync",
	}, []string{"operation"})

	BookingsImportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channel_bookings_imported_total",
		Help: "Total number of bookings imported from external channels",
	}, []string{"channel"})

	ChannelRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "channel_request_latency_seconds",
		Help:    "Latency of external channel API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel", "operation"})

	RunLeaseContention = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_run_lease_contention_total",
		Help: "Runs refused because the lease was already held",
	}, []string{"batch"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
