package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RunsProcessed  *prometheus.CounterVec
	ProviderCalls  *prometheus.CounterVec
	APIErrors      *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
	CacheLookups   *prometheus.CounterVec
	PlacesResolved *prometheus.CounterVec
	ActiveWorkers  prometheus.Gauge
	ReportsSaved   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RunsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geoplaces_runs_processed_total",
			Help: "Total number of place resolution runs.",
		}, []string{"status"}),
		ProviderCalls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geoplaces_provider_requests_total",
			Help: "Total number of requests sent to geocoding providers.",
		}, []string{"provider", "status"}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geoplaces_provider_api_errors_total",
			Help: "Total number of errors received from geocoding provider APIs.",
		}, []string{"provider"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoplaces_provider_request_duration_seconds",
			Help:    "Duration of requests to geocoding provider APIs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		CacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geoplaces_cache_lookups_total",
			Help: "Response cache lookups by outcome.",
		}, []string{"provider", "result"}),
		PlacesResolved: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geoplaces_places_resolved_total",
			Help: "Places returned by geocoding providers before deduplication.",
		}, []string{"provider"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "geoplaces_active_workers",
			Help: "Current number of workers resolving coordinates.",
		}),
		ReportsSaved: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geoplaces_reports_saved_total",
			Help: "Reports written to the database by outcome.",
		}, []string{"status"}),
	}
}
