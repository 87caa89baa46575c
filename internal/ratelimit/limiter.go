// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package ratelimit implements the fixed-window request counter that guards
// the tracking endpoint.
//
// Each identifier owns a window holding a request count and a reset
// deadline. The first request after the deadline replaces the window
// instead of incrementing it, so a client can see up to twice the limit
// across a window boundary. State is process-local.
//
// Expired windows are removed two ways: roughly one Check in a thousand
// sweeps the whole table inline, and Serve runs a periodic sweep for as
// long as its context lives.
package ratelimit

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/tally/internal/logging"
	"github.com/tomtom215/tally/internal/metrics"
)

// DefaultSweepOdds is the inverse probability of an inline sweep per Check.
const DefaultSweepOdds = 1000

// DefaultSweepInterval is the period of the background sweep.
const DefaultSweepInterval = time.Minute

// Result is the outcome of one Check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the window resets, at least 1.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter keyed by identifier. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	now           func() time.Time
	sweepRoll     func() bool
	sweepInterval time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSweepOdds sets the inverse probability of an inline sweep. A value
// below 1 disables inline sweeping.
func WithSweepOdds(odds int) Option {
	return func(l *Limiter) {
		if odds < 1 {
			l.sweepRoll = func() bool { return false }
			return
		}
		l.sweepRoll = func() bool { return rand.IntN(odds) == 0 }
	}
}

// WithSweepInterval sets the period used by Serve.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.sweepInterval = d
		}
	}
}

// New creates an empty Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows:       make(map[string]*window),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
	}
	WithSweepOdds(DefaultSweepOdds)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts one request for identifier against limit requests per
// window. A limit below 1 is treated as 1.
//
// A denied request does not increment the count and reports the reset
// deadline of the current window.
func (l *Limiter) Check(identifier string, limit int, window time.Duration) Result {
	if limit < 1 {
		limit = 1
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sweepRoll() {
		l.sweepLocked(now)
	}

	w, ok := l.windows[identifier]
	if !ok || !now.Before(w.resetAt) {
		l.windows[identifier] = newWindow(now, window)
		metrics.RateLimitEntries.Set(float64(len(l.windows)))
		return Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: now.Add(window)}
	}

	if w.count >= limit {
		metrics.RateLimitRejections.Inc()
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Result{Allowed: true, Limit: limit, Remaining: limit - w.count, ResetAt: w.resetAt}
}

func newWindow(now time.Time, d time.Duration) *window {
	return &window{count: 1, resetAt: now.Add(d)}
}

// Sweep removes every expired window and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(now)
}

func (l *Limiter) sweepLocked(now time.Time) int {
	removed := 0
	for id, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, id)
			removed++
		}
	}
	metrics.RateLimitEntries.Set(float64(len(l.windows)))
	return removed
}

// Len returns the number of windows currently held.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Serve sweeps expired windows periodically until ctx is canceled.
// It implements suture.Service.
func (l *Limiter) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				logging.Debug().Int("removed", n).Msg("Rate limit windows swept")
			}
		}
	}
}

// String names the service in supervisor logs.
func (l *Limiter) String() string {
	return "rate-limit-sweeper"
}
