// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package metrics

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordTrackRequest(t *testing.T) {
	outcomes := []string{
		OutcomeAccepted, OutcomeInvalid, OutcomeUnknownSite,
		OutcomeRateLimited, OutcomeMalformed, OutcomeRecovered,
	}
	for _, outcome := range outcomes {
		t.Run(outcome, func(t *testing.T) {
			before := testutil.ToFloat64(TrackRequests.WithLabelValues(outcome))
			RecordTrackRequest(outcome, time.Millisecond)
			after := testutil.ToFloat64(TrackRequests.WithLabelValues(outcome))
			if after != before+1 {
				t.Errorf("counter for %q = %v, want %v", outcome, after, before+1)
			}
		})
	}
}

func TestRecordWriterBatch(t *testing.T) {
	written := WriterEvents.WithLabelValues(WriterResultWritten)
	failed := WriterEvents.WithLabelValues(WriterResultFailed)

	w0, f0 := testutil.ToFloat64(written), testutil.ToFloat64(failed)

	RecordWriterBatch(10, 5*time.Millisecond, nil)
	RecordWriterBatch(3, 5*time.Millisecond, errors.New("disk full"))

	if got := testutil.ToFloat64(written) - w0; got != 10 {
		t.Errorf("written delta = %v, want 10", got)
	}
	if got := testutil.ToFloat64(failed) - f0; got != 3 {
		t.Errorf("failed delta = %v, want 3", got)
	}
}

func TestRecordWriterDrop(t *testing.T) {
	dropped := WriterEvents.WithLabelValues(WriterResultDropped)
	before := testutil.ToFloat64(dropped)
	RecordWriterDrop()
	if got := testutil.ToFloat64(dropped); got != before+1 {
		t.Errorf("dropped = %v, want %v", got, before+1)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("event_store", "closed", "open", 2)

	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("event_store")); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}

	m := &dto.Metric{}
	if err := CircuitBreakerTransitions.WithLabelValues("event_store", "closed", "open").Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.GetCounter().GetValue() < 1 {
		t.Errorf("transition counter = %v, want >= 1", m.GetCounter().GetValue())
	}
}

func TestRecordDBQuery_ErrorTruncation(t *testing.T) {
	long := errors.New(strings.Repeat("x", 120))
	RecordDBQuery("INSERT", "pageviews", time.Millisecond, long)

	truncated := strings.Repeat("x", 50)
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("INSERT", "pageviews", truncated)); got < 1 {
		t.Errorf("expected error counter with truncated label, got %v", got)
	}
}

func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	for i := 0; i < 10; i++ {
		TrackActiveRequest(true)
	}
	for i := 0; i < 10; i++ {
		TrackActiveRequest(false)
	}
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				RecordTrackRequest(OutcomeAccepted, time.Microsecond)
				RecordAPIRequest("GET", "/api/v1/sites/{siteID}/stats/summary", "200", time.Millisecond)
				RecordDBQuery("SELECT", "pageviews", time.Millisecond, nil)
			}
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		TrackRequests,
		TrackDuration,
		RateLimitEntries,
		RateLimitRejections,
		SiteCacheHits,
		SiteCacheMisses,
		SiteCacheEvictions,
		SiteCacheEntries,
		WriterQueueDepth,
		WriterEvents,
		WriterBatchDuration,
		CircuitBreakerState,
		CircuitBreakerTransitions,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		DBQueryDuration,
		DBQueryErrors,
		AppInfo,
	}

	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		c.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("collector has no descriptors")
		}
	}
}

func TestMetricGathering(t *testing.T) {
	RecordTrackRequest(OutcomeAccepted, time.Millisecond)
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}
