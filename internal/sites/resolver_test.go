// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package sites

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/tally/internal/cache"
	"github.com/tomtom215/tally/internal/models"
)

type mockRegistry struct {
	sites   map[string]models.Site
	err     error
	lookups atomic.Int64
}

func (m *mockRegistry) FindSiteByPublicToken(_ context.Context, token string) (*models.Site, error) {
	m.lookups.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sites[token]
	if !ok {
		return nil, fmt.Errorf("token %q: %w", token, ErrSiteNotFound)
	}
	return &s, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestResolver(reg Registry) (*Resolver, *clock) {
	clk := &clock{now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	return NewResolver(reg, DefaultTTL, cache.WithClock(clk.Now)), clk
}

var exampleSite = models.Site{ID: "site_01", PublicToken: "pub_abc", Name: "Example"}

func TestResolve_CachesWithinTTL(t *testing.T) {
	reg := &mockRegistry{sites: map[string]models.Site{"pub_abc": exampleSite}}
	r, clk := newTestResolver(reg)
	ctx := context.Background()

	site, err := r.Resolve(ctx, "pub_abc")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if site != exampleSite {
		t.Errorf("site = %+v, want %+v", site, exampleSite)
	}
	if got := reg.lookups.Load(); got != 1 {
		t.Fatalf("lookups after first resolve = %d, want 1", got)
	}

	clk.Advance(4*time.Minute + 59*time.Second)
	if _, err := r.Resolve(ctx, "pub_abc"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := reg.lookups.Load(); got != 1 {
		t.Errorf("lookups within TTL = %d, want 1", got)
	}
}

func TestResolve_LooksUpOnceAfterExpiry(t *testing.T) {
	reg := &mockRegistry{sites: map[string]models.Site{"pub_abc": exampleSite}}
	r, clk := newTestResolver(reg)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "pub_abc"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	clk.Advance(DefaultTTL)

	if _, err := r.Resolve(ctx, "pub_abc"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := reg.lookups.Load(); got != 2 {
		t.Errorf("lookups after expiry = %d, want 2", got)
	}

	if _, err := r.Resolve(ctx, "pub_abc"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := reg.lookups.Load(); got != 2 {
		t.Errorf("lookups after refill = %d, want 2", got)
	}
}

func TestResolve_NotFoundIsNotCached(t *testing.T) {
	reg := &mockRegistry{sites: map[string]models.Site{}}
	r, _ := newTestResolver(reg)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), "invalid-site-id-12345")
		if !errors.Is(err, ErrSiteNotFound) {
			t.Fatalf("err = %v, want ErrSiteNotFound", err)
		}
	}
	if got := reg.lookups.Load(); got != 3 {
		t.Errorf("lookups = %d, want 3", got)
	}
}

func TestResolve_RegistryError(t *testing.T) {
	boom := errors.New("connection refused")
	r, _ := newTestResolver(&mockRegistry{err: boom})

	_, err := r.Resolve(context.Background(), "pub_abc")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
	if errors.Is(err, ErrSiteNotFound) {
		t.Error("registry failure reported as not found")
	}
}

type nilRegistry struct{}

func (nilRegistry) FindSiteByPublicToken(context.Context, string) (*models.Site, error) {
	return nil, nil
}

func TestResolve_NilSiteIsNotFound(t *testing.T) {
	r, _ := newTestResolver(nilRegistry{})
	if _, err := r.Resolve(context.Background(), "x"); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("err = %v, want ErrSiteNotFound", err)
	}
}
