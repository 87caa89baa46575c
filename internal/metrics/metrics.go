// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a tracking request.
const (
	OutcomeAccepted    = "accepted"
	OutcomeInvalid     = "invalid"
	OutcomeUnknownSite = "unknown_site"
	OutcomeRateLimited = "rate_limited"
	OutcomeMalformed   = "malformed"
	OutcomeRecovered   = "recovered"
)

// Results of an event handed to the writer.
const (
	WriterResultWritten = "written"
	WriterResultFailed  = "failed"
	WriterResultDropped = "dropped"
)

var (
	// Ingestion Metrics
	TrackRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_track_requests_total",
			Help: "Total number of tracking requests by outcome",
		},
		[]string{"outcome"},
	)

	TrackDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tally_track_duration_seconds",
			Help:    "Tracking request handling duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
	)

	// Rate Limiter Metrics
	RateLimitEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tally_rate_limit_entries",
			Help: "Current number of rate limit windows held in memory",
		},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tally_rate_limit_rejections_total",
			Help: "Total number of requests denied by the rate limiter",
		},
	)

	// Site Cache Metrics
	SiteCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tally_site_cache_hits_total",
			Help: "Total number of site lookups served from cache",
		},
	)

	SiteCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tally_site_cache_misses_total",
			Help: "Total number of site lookups that reached the registry",
		},
	)

	SiteCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tally_site_cache_evictions_total",
			Help: "Total number of expired site cache entries removed",
		},
	)

	SiteCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tally_site_cache_entries",
			Help: "Current number of cached sites",
		},
	)

	// Writer Metrics
	WriterQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tally_writer_queue_depth",
			Help: "Current number of events waiting to be written",
		},
	)

	WriterEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_writer_events_total",
			Help: "Total number of events handled by the writer by result",
		},
		[]string{"result"},
	)

	WriterBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tally_writer_batch_duration_seconds",
			Help:    "Duration of batch inserts in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of database query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordTrackRequest records the outcome and latency of one tracking request.
func RecordTrackRequest(outcome string, duration time.Duration) {
	TrackRequests.WithLabelValues(outcome).Inc()
	TrackDuration.Observe(duration.Seconds())
}

// RecordWriterBatch records a batch insert. A failed batch counts all of its
// events as failed.
func RecordWriterBatch(size int, duration time.Duration, err error) {
	WriterBatchDuration.Observe(duration.Seconds())
	result := WriterResultWritten
	if err != nil {
		result = WriterResultFailed
	}
	WriterEvents.WithLabelValues(result).Add(float64(size))
}

// RecordWriterEvents adds n events with the given result.
func RecordWriterEvents(result string, n int) {
	if n > 0 {
		WriterEvents.WithLabelValues(result).Add(float64(n))
	}
}

// RecordWriterDrop records an event that never reached the queue.
func RecordWriterDrop() {
	WriterEvents.WithLabelValues(WriterResultDropped).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
// state is 0 for closed, 1 for half-open and 2 for open.
func RecordBreakerTransition(name, from, to string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
