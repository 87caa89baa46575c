// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

/*
Package metrics provides Prometheus collectors for the ingestion pipeline.

All collectors are registered with the default registry through promauto and
exposed at GET /metrics.

# Available Metrics

Ingestion:
  - tally_track_requests_total: tracking requests by outcome (counter)
    Labels: outcome (accepted, invalid, unknown_site, rate_limited, malformed, recovered)
  - tally_track_duration_seconds: handler latency (histogram)

Rate limiter and site cache:
  - tally_rate_limit_entries: live limiter windows (gauge)
  - tally_rate_limit_rejections_total: denied checks (counter)
  - tally_site_cache_hits_total, tally_site_cache_misses_total,
    tally_site_cache_evictions_total, tally_site_cache_entries

Writer:
  - tally_writer_queue_depth: events waiting to be written (gauge)
  - tally_writer_events_total: events by result (counter)
    Labels: result (written, failed, dropped)
  - tally_writer_batch_duration_seconds: insert latency per batch (histogram)
  - circuit_breaker_state, circuit_breaker_state_transitions_total

Stats API:
  - api_requests_total, api_request_duration_seconds, api_active_requests,
    api_rate_limit_hits_total

Storage:
  - db_query_duration_seconds, db_query_errors_total

# Usage

	metrics.RecordTrackRequest(metrics.OutcomeAccepted, time.Since(start))
	metrics.RecordWriterBatch(len(batch), time.Since(start), err)
*/
package metrics
