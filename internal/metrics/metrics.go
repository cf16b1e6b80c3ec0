package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Visit metrics
	VisitsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlerlog_visits_recorded_total",
			Help: "Total number of visit records written, by classification",
		},
		[]string{"class"},
	)

	VisitRecordFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawlerlog_visit_record_failures_total",
			Help: "Total number of visit writes that failed and were dropped",
		},
	)

	EngagementUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlerlog_engagement_reports_total",
			Help: "Client engagement reports by outcome (updated or inserted)",
		},
		[]string{"outcome"},
	)

	VisitsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawlerlog_visits_pruned_total",
			Help: "Total number of visit records removed by the retention job",
		},
	)

	// Presence metrics
	PresenceActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawlerlog_presence_active_connections",
			Help: "Number of currently connected presence clients",
		},
	)

	// Analytics metrics
	AnalyticsQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawlerlog_analytics_query_duration_seconds",
			Help:    "Time taken to build analytics views in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	AnalyticsCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlerlog_analytics_cache_total",
			Help: "Analytics cache lookups by result (hit or miss)",
		},
		[]string{"result"},
	)

	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlerlog_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawlerlog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(VisitsRecorded)
	prometheus.MustRegister(VisitRecordFailures)
	prometheus.MustRegister(EngagementUpdates)
	prometheus.MustRegister(VisitsPruned)
	prometheus.MustRegister(PresenceActive)
	prometheus.MustRegister(AnalyticsQueryDuration)
	prometheus.MustRegister(AnalyticsCacheHits)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation and reports it to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDurationVec records the elapsed time on a labelled histogram
func (t *Timer) ObserveDurationVec(vec *prometheus.HistogramVec, labels ...string) {
	vec.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
