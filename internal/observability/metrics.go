package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the resolution pipeline.
type Metrics struct {
	// Resolver metrics.
	Lookups          *prometheus.CounterVec // labels: outcome={cache_hit,success,error}
	LookupErrors     *prometheus.CounterVec // labels: kind
	CacheEntries     prometheus.Gauge
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,no_data,status_error,transport_error,malformed}
	UpstreamDuration prometheus.Histogram

	// Retry worker metrics.
	WorkerRunning prometheus.Gauge
	QueueDepth    prometheus.Gauge
	ItemsRetried  *prometheus.CounterVec // labels: outcome={success,failure}
	ItemsDropped  prometheus.Counter

	// Kafka event forwarding metrics.
	EventsForwarded prometheus.Counter
	ForwardErrors   prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Lookups,
		m.LookupErrors,
		m.CacheEntries,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.WorkerRunning,
		m.QueueDepth,
		m.ItemsRetried,
		m.ItemsDropped,
		m.EventsForwarded,
		m.ForwardErrors,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics without registering them. Used by
// short-lived callers that never expose a scrape endpoint.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geo_resolver",
			Name:      "lookups_total",
			Help:      "Postcode resolutions by outcome.",
		}, []string{"outcome"}),
		LookupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geo_resolver",
			Name:      "lookup_errors_total",
			Help:      "Failed resolutions by error kind.",
		}, []string{"kind"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geo_resolver",
			Name:      "cache_entries",
			Help:      "Number of postcodes in the coordinate cache.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geo_resolver",
			Name:      "upstream_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geo_resolver",
			Name:      "upstream_request_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		WorkerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geo_resolver",
			Name:      "retry_worker_running",
			Help:      "1 when the retry worker loop is active, 0 otherwise.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geo_resolver",
			Name:      "retry_queue_depth",
			Help:      "Items currently waiting in the retry queue.",
		}),
		ItemsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geo_resolver",
			Name:      "retry_items_total",
			Help:      "Queued re-attempts by outcome.",
		}, []string{"outcome"}),
		ItemsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geo_resolver",
			Name:      "retry_items_dropped_total",
			Help:      "Queue items discarded after reaching the retry ceiling.",
		}),
		EventsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geo_resolver",
			Name:      "events_forwarded_total",
			Help:      "Lookup events forwarded to the Kafka events topic.",
		}),
		ForwardErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geo_resolver",
			Name:      "event_forward_errors_total",
			Help:      "Failures writing lookup events to Kafka.",
		}),
	}
}
