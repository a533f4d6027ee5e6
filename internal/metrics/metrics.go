package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal tracks logical API calls per endpoint and final outcome
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanstats_api_requests_total",
			Help: "Total number of logical API calls",
		},
		[]string{"endpoint", "outcome"},
	)

	// APIAttemptsTotal tracks individual dispatches by classification
	APIAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanstats_api_attempts_total",
			Help: "Total number of API dispatch attempts",
		},
		[]string{"outcome"},
	)

	// APIRetriesTotal tracks retries by the cause of the previous failure
	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanstats_api_retries_total",
			Help: "Total number of API retries",
		},
		[]string{"cause"},
	)

	// APILatency tracks the latency of a logical call including retries
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanstats_api_latency_seconds",
			Help:    "API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// AdmissionWait tracks time spent waiting for a rate limiter token
	AdmissionWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fanstats_admission_wait_seconds",
			Help:    "Time spent waiting for admission",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// ArtistsCollected tracks artist rows written
	ArtistsCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanstats_artists_collected_total",
			Help: "Total number of artist rows written",
		},
	)

	// TracksCollected tracks track rows written
	TracksCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanstats_tracks_collected_total",
			Help: "Total number of track rows written",
		},
	)

	// PagesCollected tracks artist list pages completed
	PagesCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanstats_collector_pages_total",
			Help: "Total number of artist pages completed",
		},
	)

	// FailedRequests tracks requests parked in the dead-letter queue
	FailedRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanstats_failed_requests",
			Help: "Number of failed requests awaiting inspection",
		},
	)

	// DBConnectionPoolUsage tracks open connections as a percentage of the pool
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanstats_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)
