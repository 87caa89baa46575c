// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCheck_FixedWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithSweepOdds(0))
	const limit = 5
	window := time.Second

	for i := 1; i <= limit; i++ {
		res := l.Check("203.0.113.7", limit, window)
		if !res.Allowed {
			t.Fatalf("check %d denied, want allowed", i)
		}
		if res.Remaining != limit-i {
			t.Errorf("check %d remaining = %d, want %d", i, res.Remaining, limit-i)
		}
		clock.Advance(100 * time.Millisecond)
	}

	first := clock.Now().Add(-500 * time.Millisecond).Add(window)
	res := l.Check("203.0.113.7", limit, window)
	if res.Allowed {
		t.Fatal("sixth check allowed, want denied")
	}
	if res.Remaining != 0 {
		t.Errorf("denied remaining = %d, want 0", res.Remaining)
	}
	if !res.ResetAt.Equal(first) {
		t.Errorf("denied ResetAt = %v, want unchanged %v", res.ResetAt, first)
	}

	clock.Advance(window)
	res = l.Check("203.0.113.7", limit, window)
	if !res.Allowed {
		t.Fatal("check after window denied, want allowed")
	}
	if res.Remaining != limit-1 {
		t.Errorf("remaining after reset = %d, want %d", res.Remaining, limit-1)
	}
	if !res.ResetAt.Equal(clock.Now().Add(window)) {
		t.Errorf("ResetAt after reset = %v, want %v", res.ResetAt, clock.Now().Add(window))
	}
}

func TestCheck_DeniedDoesNotIncrement(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithSweepOdds(0))

	l.Check("a", 1, time.Minute)
	for i := 0; i < 10; i++ {
		if res := l.Check("a", 1, time.Minute); res.Allowed {
			t.Fatalf("check %d allowed", i)
		}
	}
	if got := l.windows["a"].count; got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestCheck_IdentifiersAreIndependent(t *testing.T) {
	l := New(WithClock(newFakeClock().Now), WithSweepOdds(0))

	if !l.Check("a", 1, time.Minute).Allowed {
		t.Fatal("a denied")
	}
	if !l.Check("b", 1, time.Minute).Allowed {
		t.Fatal("b denied")
	}
	if l.Check("a", 1, time.Minute).Allowed {
		t.Fatal("a allowed twice")
	}
}

func TestCheck_LimitBelowOne(t *testing.T) {
	l := New(WithClock(newFakeClock().Now), WithSweepOdds(0))
	res := l.Check("a", 0, time.Minute)
	if !res.Allowed || res.Limit != 1 || res.Remaining != 0 {
		t.Errorf("got %+v, want allowed with limit 1", res)
	}
	if l.Check("a", 0, time.Minute).Allowed {
		t.Error("second check allowed")
	}
}

func TestSweep_RemovesExpiredOnly(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithSweepOdds(0))

	l.Check("short", 10, time.Second)
	l.Check("long", 10, time.Hour)
	clock.Advance(2 * time.Second)

	if n := l.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
	if _, ok := l.windows["long"]; !ok {
		t.Error("unexpired window removed")
	}
}

func TestCheck_InlineSweep(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithSweepOdds(1))

	for _, id := range []string{"a", "b", "c"} {
		l.Check(id, 10, time.Second)
	}
	clock.Advance(2 * time.Second)

	l.Check("d", 10, time.Second)
	if l.Len() != 1 {
		t.Errorf("Len = %d after inline sweep, want 1", l.Len())
	}
}

func TestCheck_Concurrent(t *testing.T) {
	l := New(WithSweepOdds(0))
	const (
		goroutines = 20
		perG       = 50
		limit      = 500
	)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := 0
			for i := 0; i < perG; i++ {
				if l.Check("shared", limit, time.Hour).Allowed {
					n++
				}
			}
			mu.Lock()
			allowed += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if allowed != limit {
		t.Errorf("allowed = %d, want exactly %d", allowed, limit)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		reset time.Time
		want  int
	}{
		{"rounds up", now.Add(1500 * time.Millisecond), 2},
		{"exact", now.Add(10 * time.Second), 10},
		{"past", now.Add(-time.Second), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Result{ResetAt: tt.reset}).RetryAfter(now); got != tt.want {
				t.Errorf("RetryAfter = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithSweepOdds(0), WithSweepInterval(5*time.Millisecond))
	l.Check("a", 1, time.Millisecond)
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for l.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if l.Len() != 0 {
		t.Error("background sweep did not remove expired window")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
