// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package writer persists pageview events off the request path.
//
// Enqueue never blocks: an event either lands in a bounded in-memory queue
// or is dropped and counted. Workers drain the queue in batches, writing
// through a circuit breaker so that a failing store sheds load instead of
// piling up timeouts. When Serve's context ends, workers keep draining for
// at most DrainTimeout and whatever is left is lost.
//
// Delivery is best-effort. When a batch insert fails, its events are
// written one at a time so that a single bad row costs only itself. Rows
// that still fail are logged and counted, never retried. Rejections the
// store attributes to the event (models.ErrInvalidEvent) do not count
// against the breaker.
package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tally/internal/logging"
	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/models"
)

var (
	// ErrQueueFull is returned by Enqueue when the queue has no free slot.
	ErrQueueFull = errors.New("writer queue full")
	// ErrClosed is returned by Enqueue once shutdown has begun.
	ErrClosed = errors.New("writer closed")
)

// BreakerName labels the store circuit breaker in metrics.
const BreakerName = "event_store"

// Store is the write side of the event store. InsertPageviews must not
// retain the slice after returning.
type Store interface {
	InsertPageviews(ctx context.Context, events []models.PageviewEvent) error
}

// Config controls queueing, batching and failure handling.
type Config struct {
	QueueSize       int
	Workers         int
	BatchSize       int
	FlushInterval   time.Duration
	WriteTimeout    time.Duration
	DrainTimeout    time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:       10000,
		Workers:         2,
		BatchSize:       100,
		FlushInterval:   time.Second,
		WriteTimeout:    5 * time.Second,
		DrainTimeout:    10 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = d.BreakerFailures
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = d.BreakerTimeout
	}
	return c
}

// Writer is a bounded asynchronous event writer.
type Writer struct {
	store   Store
	cfg     Config
	queue   chan models.PageviewEvent
	breaker *gobreaker.CircuitBreaker[struct{}]

	mu     sync.RWMutex
	closed bool

	dropLog  rate.Sometimes
	writeLog rate.Sometimes
}

// New creates a Writer. Nothing is written until Serve runs.
func New(store Store, cfg Config) *Writer {
	cfg = cfg.withDefaults()

	w := &Writer{
		store:    store,
		cfg:      cfg,
		queue:    make(chan models.PageviewEvent, cfg.QueueSize),
		dropLog:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
		writeLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}

	w.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, models.ErrInvalidEvent)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String(), breakerStateValue(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Event store circuit breaker changed state")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(BreakerName).Set(0)

	return w
}

func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Enqueue hands ev to the writer without blocking.
func (w *Writer) Enqueue(ev models.PageviewEvent) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		metrics.RecordWriterDrop()
		return ErrClosed
	}

	select {
	case w.queue <- ev:
		metrics.WriterQueueDepth.Set(float64(len(w.queue)))
		return nil
	default:
		metrics.RecordWriterDrop()
		w.dropLog.Do(func() {
			logging.Warn().
				Int("queue_size", w.cfg.QueueSize).
				Msg("Writer queue full, dropping pageview events")
		})
		return ErrQueueFull
	}
}

// QueueDepth returns the number of events waiting to be written.
func (w *Writer) QueueDepth() int {
	return len(w.queue)
}

// BreakerState returns the circuit breaker state as a string.
func (w *Writer) BreakerState() string {
	return w.breaker.State().String()
}

// Serve runs the workers until ctx is canceled, then drains the queue
// within DrainTimeout. It implements suture.Service.
func (w *Writer) Serve(ctx context.Context) error {
	w.mu.Lock()
	w.closed = false
	w.mu.Unlock()

	logging.Info().
		Int("workers", w.cfg.Workers).
		Int("batch_size", w.cfg.BatchSize).
		Int("queue_size", w.cfg.QueueSize).
		Msg("Event writer started")

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.work(ctx)
		}()
	}

	<-ctx.Done()

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	drainCtx, cancel := context.WithTimeout(context.Background(), w.cfg.DrainTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	w.drain(drainCtx)
	<-done

	if n := len(w.queue); n > 0 {
		logging.Warn().Int("lost", n).Msg("Writer drain timed out, events lost")
	} else {
		logging.Info().Msg("Event writer drained")
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (w *Writer) String() string {
	return "event-writer"
}

func (w *Writer) work(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]models.PageviewEvent, 0, w.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				w.flushWithTimeout(context.Background(), batch)
			}
			return

		case ev := <-w.queue:
			metrics.WriterQueueDepth.Set(float64(len(w.queue)))
			batch = append(batch, ev)
			if len(batch) >= w.cfg.BatchSize {
				w.flushWithTimeout(ctx, batch)
				batch = batch[:0]
				ticker.Reset(w.cfg.FlushInterval)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flushWithTimeout(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// drain empties the queue after the workers have been told to stop.
func (w *Writer) drain(ctx context.Context) {
	batch := make([]models.PageviewEvent, 0, w.cfg.BatchSize)
	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case ev := <-w.queue:
			batch = append(batch, ev)
			if len(batch) >= w.cfg.BatchSize {
				w.flushWithTimeout(ctx, batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				w.flushWithTimeout(ctx, batch)
			}
			metrics.WriterQueueDepth.Set(0)
			return
		}
	}
}

func (w *Writer) flushWithTimeout(parent context.Context, batch []models.PageviewEvent) {
	ctx, cancel := context.WithTimeout(parent, w.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := w.flush(ctx, batch)
	if err != nil && len(batch) > 1 && canIsolate(ctx, err) {
		metrics.WriterBatchDuration.Observe(time.Since(start).Seconds())
		w.isolate(ctx, batch)
		return
	}
	metrics.RecordWriterBatch(len(batch), time.Since(start), err)

	if err != nil {
		w.logWriteError(err, len(batch))
	}
}

// canIsolate reports whether a failed batch is worth splitting into single
// rows. Nothing is attempted once the breaker rejects calls or the write
// deadline has passed.
func canIsolate(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
}

// isolate writes each event of a failed batch on its own.
func (w *Writer) isolate(ctx context.Context, batch []models.PageviewEvent) {
	var written, failed int
	var lastErr error
	for i := range batch {
		if err := w.flush(ctx, batch[i:i+1]); err != nil {
			failed++
			lastErr = err
			continue
		}
		written++
	}

	metrics.RecordWriterEvents(metrics.WriterResultWritten, written)
	metrics.RecordWriterEvents(metrics.WriterResultFailed, failed)

	if failed > 0 {
		w.logWriteError(lastErr, failed)
	}
}

func (w *Writer) logWriteError(err error, events int) {
	w.writeLog.Do(func() {
		logging.Error().
			Err(err).
			Int("events", events).
			Str("breaker", w.breaker.State().String()).
			Msg("Failed to write pageview batch")
	})
}

func (w *Writer) flush(ctx context.Context, batch []models.PageviewEvent) error {
	_, err := w.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, w.store.InsertPageviews(ctx, batch)
	})
	if err != nil {
		return fmt.Errorf("insert %d pageviews: %w", len(batch), err)
	}
	return nil
}
