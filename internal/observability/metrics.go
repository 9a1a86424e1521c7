// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Catalog metrics
	CatalogRefreshes       *prometheus.CounterVec
	CatalogRefreshDuration prometheus.Histogram
	StrategyMutationsTotal *prometheus.CounterVec

	// Campaign metrics
	SubmissionsTotal *prometheus.CounterVec
	CampaignsTotal   *prometheus.CounterVec
	CampaignDuration *prometheus.HistogramVec

	// Leaderboard metrics
	LeaderboardFetches       *prometheus.CounterVec
	LeaderboardFetchDuration prometheus.Histogram
	LeaderboardRowsCached    prometheus.Gauge
	ExpandedRecords          prometheus.Gauge

	// Service metrics
	ServiceCallLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh  prometheus.Gauge
	LastSuccessfulCampaign prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "strategy_lab"
	}

	return &Metrics{
		// Catalog metrics
		CatalogRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "refreshes_total",
			Help:      "Total number of full catalog refreshes by status",
		}, []string{"status"}),
		CatalogRefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "refresh_duration_seconds",
			Help:      "Full catalog refresh duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StrategyMutationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "strategy_mutations_total",
			Help:      "Total number of strategy create/update/delete calls by status",
		}, []string{"operation", "status"}),

		// Campaign metrics
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "submissions_total",
			Help:      "Total number of backtest submissions by mode and outcome",
		}, []string{"mode", "outcome"}),
		CampaignsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "runs_total",
			Help:      "Total number of campaigns by mode and status",
		}, []string{"mode", "status"}),
		CampaignDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "duration_seconds",
			Help:      "Campaign execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),

		// Leaderboard metrics
		LeaderboardFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "fetches_total",
			Help:      "Total number of leaderboard fetches by status",
		}, []string{"status"}),
		LeaderboardFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "fetch_duration_seconds",
			Help:      "Leaderboard fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LeaderboardRowsCached: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "rows_cached",
			Help:      "Current number of cached leaderboard rows across all records",
		}),
		ExpandedRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "expanded_records",
			Help:      "Current number of expanded backtest records",
		}),

		// Service metrics
		ServiceCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "call_latency_seconds",
			Help:      "Execution service call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		// HTTP metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful catalog refresh",
		}),
		LastSuccessfulCampaign: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_campaign_timestamp",
			Help:      "Unix timestamp of last campaign without failures",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCatalogRefresh records a full catalog refresh.
func RecordCatalogRefresh(status string, seconds float64) {
	DefaultMetrics.CatalogRefreshes.WithLabelValues(status).Inc()
	DefaultMetrics.CatalogRefreshDuration.Observe(seconds)
	if status == "ok" {
		DefaultMetrics.LastSuccessfulRefresh.SetToCurrentTime()
	}
}

// RecordStrategyMutation records a strategy create/update/delete call.
func RecordStrategyMutation(operation string, err error) {
	DefaultMetrics.StrategyMutationsTotal.WithLabelValues(operation, statusOf(err)).Inc()
}

// RecordSubmission records one backtest submission.
func RecordSubmission(mode, outcome string) {
	DefaultMetrics.SubmissionsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordCampaign records a finished campaign.
func RecordCampaign(mode string, failed bool, durationSeconds float64) {
	status := "ok"
	if failed {
		status = "partial"
	} else {
		DefaultMetrics.LastSuccessfulCampaign.SetToCurrentTime()
	}
	DefaultMetrics.CampaignsTotal.WithLabelValues(mode, status).Inc()
	DefaultMetrics.CampaignDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordLeaderboardFetch records a leaderboard fetch.
func RecordLeaderboardFetch(status string, seconds float64) {
	DefaultMetrics.LeaderboardFetches.WithLabelValues(status).Inc()
	DefaultMetrics.LeaderboardFetchDuration.Observe(seconds)
}

// UpdateLeaderboardGauges updates the cache size gauges.
func UpdateLeaderboardGauges(expandedRecords, cachedRows int) {
	DefaultMetrics.ExpandedRecords.Set(float64(expandedRecords))
	DefaultMetrics.LeaderboardRowsCached.Set(float64(cachedRows))
}

// RecordServiceCall records execution service call latency.
func RecordServiceCall(operation string, seconds float64, err error) {
	DefaultMetrics.ServiceCallLatency.WithLabelValues(operation, statusOf(err)).Observe(seconds)
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	DefaultMetrics.HTTPRequestLatency.WithLabelValues(method, route).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
