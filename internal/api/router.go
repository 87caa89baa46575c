// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tally/internal/auth"
	"github.com/tomtom215/tally/internal/middleware"
	"github.com/tomtom215/tally/internal/models"
)

// TrackHandler is satisfied by *ingest.Handler.
type TrackHandler interface {
	Track(w http.ResponseWriter, r *http.Request)
	Preflight(w http.ResponseWriter, r *http.Request)
}

// RouterConfig collects everything the router mounts.
type RouterConfig struct {
	Track   TrackHandler
	Handler *Handler

	// JWT enables the stats API. Nil leaves it unmounted.
	JWT *auth.JWTManager

	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Metrics serves /metrics. Defaults to promhttp.Handler().
	Metrics http.Handler
}

// NewRouter builds the chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)

	r.Post("/api/track", cfg.Track.Track)
	r.Options("/api/track", cfg.Track.Preflight)

	r.Method(http.MethodGet, "/metrics", cfg.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)

		r.Get("/health/live", cfg.Handler.HealthLive)
		r.Get("/health/ready", cfg.Handler.HealthReady)

		if cfg.JWT == nil {
			return
		}

		r.Route("/sites/{siteID}/stats", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: cfg.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Authorization", "Content-Type"},
				ExposedHeaders: []string{middleware.RequestIDHeader},
				MaxAge:         86400,
			}))
			r.Use(statsRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			r.Use(auth.NewMiddleware(cfg.JWT).Authenticate)

			h := cfg.Handler
			r.Get("/summary", h.StatsSummary)
			r.Get("/pages", h.StatsBreakdown(models.DimensionPathname))
			r.Get("/referrers", h.StatsBreakdown(models.DimensionReferrer))
			r.Get("/devices", h.StatsBreakdown(models.DimensionDevice))
			r.Get("/browsers", h.StatsBreakdown(models.DimensionBrowser))
			r.Get("/os", h.StatsBreakdown(models.DimensionOS))
			r.Get("/countries", h.StatsBreakdown(models.DimensionCountry))
			r.Get("/timeseries", h.StatsTimeseries)
		})
	})

	return r
}

// statsRateLimit limits stats requests per client address with httprate.
// A non-positive limit disables it.
func statsRateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, CodeRateLimited, "Too many requests", nil)
		}),
	)
}
