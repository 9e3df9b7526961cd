// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LeadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Total number of leads stored, by source",
		},
		[]string{"source"},
	)

	SnapshotInstalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_installs_total",
			Help: "Total number of snapshot install attempts, by result",
		},
		[]string{"result"},
	)

	CatalogFixturesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_catalog_fixtures_skipped_total",
			Help: "Fixtures left out of catalog listings because they failed to parse",
		},
	)

	RealtimeEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Total number of realtime events published",
		},
		[]string{"event"},
	)

	RealtimeEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Events not delivered to an observer whose buffer was full",
		},
		[]string{"event"},
	)

	RealtimeObservers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_observers",
			Help: "Number of currently connected realtime observers",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// Lead sources.
const (
	SourceForm     = "form"
	SourceSnapshot = "snapshot"
)
