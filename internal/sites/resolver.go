// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package sites resolves the public token of a tracking request to the
// registered site, consulting an in-memory cache before the registry.
//
// Cached projections live for a fixed TTL and are not invalidated when the
// registry changes, so a renamed or deleted site can stay visible to
// ingestion for up to one TTL. Concurrent misses for the same token each
// query the registry.
package sites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tally/internal/cache"
	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/models"
)

// DefaultTTL is how long a resolved site is served from cache.
const DefaultTTL = 5 * time.Minute

// ErrSiteNotFound is returned when no site owns the token.
var ErrSiteNotFound = errors.New("site not found")

// Registry looks up sites by public token. An unknown token is reported
// either as (nil, nil) or as an error wrapping ErrSiteNotFound.
type Registry interface {
	FindSiteByPublicToken(ctx context.Context, token string) (*models.Site, error)
}

// Resolver is a cache-first view of a Registry.
type Resolver struct {
	registry Registry
	cache    *cache.Cache[models.Site]
}

// NewResolver creates a Resolver. The returned cache must be served (see
// Cache) for expired entries to be reaped between lookups.
func NewResolver(registry Registry, ttl time.Duration, opts ...cache.Option) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	opts = append([]cache.Option{
		cache.WithName("site-cache-cleanup"),
		cache.WithEvictionHook(func(evicted, remaining int) {
			metrics.SiteCacheEvictions.Add(float64(evicted))
			metrics.SiteCacheEntries.Set(float64(remaining))
		}),
	}, opts...)

	return &Resolver{
		registry: registry,
		cache:    cache.New[models.Site](ttl, opts...),
	}
}

// Resolve returns the site owning token.
//
// Unknown tokens yield ErrSiteNotFound and are not cached. Other registry
// errors are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, token string) (models.Site, error) {
	if site, ok := r.cache.Get(token); ok {
		metrics.SiteCacheHits.Inc()
		return site, nil
	}
	metrics.SiteCacheMisses.Inc()

	site, err := r.registry.FindSiteByPublicToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSiteNotFound) {
			return models.Site{}, ErrSiteNotFound
		}
		return models.Site{}, fmt.Errorf("find site by token: %w", err)
	}
	if site == nil {
		return models.Site{}, ErrSiteNotFound
	}

	r.cache.Set(token, *site)
	metrics.SiteCacheEntries.Set(float64(r.cache.Len()))
	return *site, nil
}

// Cache exposes the underlying cache so its cleanup loop can be supervised.
func (r *Resolver) Cache() *cache.Cache[models.Site] {
	return r.cache
}
