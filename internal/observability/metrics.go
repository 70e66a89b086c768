package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trip_planner"

// Metrics holds the Prometheus collectors for the geocoding engine and API.
type Metrics struct {
	// Provider calls.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,empty,error}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider

	// Resolution engine.
	GeocodeCache          *prometheus.CounterVec // labels: result={hit,miss}
	PlausibilityRejection *prometheus.CounterVec // labels: stage={primary,fallback}
	Resolutions           *prometheus.CounterVec // labels: outcome={found,absent}
	BatchSize             prometheus.Histogram
	BatchDuration         prometheus.Histogram
	CacheFlushErrors      prometheus.Counter
	GeocodeEnabled        prometheus.Gauge

	// Planner.
	ItinerariesGenerated prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.GeocodeCache,
		m.PlausibilityRejection,
		m.Resolutions,
		m.BatchSize,
		m.BatchDuration,
		m.CacheFlushErrors,
		m.GeocodeEnabled,
		m.ItinerariesGenerated,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Geocoding provider requests by provider and outcome."),
		}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      help("Geocoding provider request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Geocode cache lookups by result."),
		}, []string{"result"}),
		PlausibilityRejection: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_plausibility_rejections_total",
			Help:      help("Candidates rejected for lying outside the focus radius, by chain stage."),
		}, []string{"stage"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_resolutions_total",
			Help:      help("Completed place resolutions by outcome."),
		}, []string{"outcome"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_batch_size",
			Help:      help("Number of uncached place names resolved per batch."),
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_batch_duration_seconds",
			Help:      help("Duration of a complete ResolveAll batch."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20},
		}),
		CacheFlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_flush_errors_total",
			Help:      help("Failed attempts to persist the geocode cache."),
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      help("1 when a geocoding provider is configured, 0 otherwise."),
		}),
		ItinerariesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "itineraries_generated_total",
			Help:      help("Itineraries returned by the planner."),
		}),
	}
}
