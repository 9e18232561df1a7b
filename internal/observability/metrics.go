package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the outage service.
type Metrics struct {
	// Weather gateway.
	WeatherRequests *prometheus.CounterVec // labels: outcome={success,http_error,transport_error,malformed,circuit_open}
	WeatherDuration prometheus.Histogram

	// Outage lifecycle.
	OutagesCreated *prometheus.CounterVec // labels: status={ongoing,completed}
	OutagesEnded   prometheus.Counter

	LocationCache *prometheus.CounterVec // labels: result={hit,miss,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.WeatherRequests,
		m.WeatherDuration,
		m.OutagesCreated,
		m.OutagesEnded,
		m.LocationCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_ledger",
			Name:      "weather_requests_total",
			Help:      "Weather provider requests by outcome.",
		}, []string{"outcome"}),
		WeatherDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outage_ledger",
			Name:      "weather_request_duration_seconds",
			Help:      "Weather provider round-trip duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		OutagesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_ledger",
			Name:      "outages_created_total",
			Help:      "Outages recorded, by status at creation.",
		}, []string{"status"}),
		OutagesEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_ledger",
			Name:      "outages_ended_total",
			Help:      "Ongoing outages transitioned to completed via the end action.",
		}),
		LocationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_ledger",
			Name:      "location_cache_total",
			Help:      "Location cache lookups by result.",
		}, []string{"result"}),
	}
}
