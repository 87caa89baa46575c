// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tally/internal/clientip"
	"github.com/tomtom215/tally/internal/logging"
	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/models"
	"github.com/tomtom215/tally/internal/ratelimit"
	"github.com/tomtom215/tally/internal/sites"
	"github.com/tomtom215/tally/internal/useragent"
	"github.com/tomtom215/tally/internal/validation"
)

// Response messages of the tracking endpoint.
const (
	MsgInvalidPayload    = "Invalid pageview data"
	MsgInvalidSite       = "Invalid site ID"
	MsgRateLimitExceeded = "Rate limit exceeded"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// Defaults used when Config fields are zero.
const (
	DefaultRateLimit    = 1000
	DefaultRateWindow   = 10 * time.Second
	DefaultMaxBodyBytes = 16 << 10
)

// RateLimiter is satisfied by *ratelimit.Limiter.
type RateLimiter interface {
	Check(identifier string, limit int, window time.Duration) ratelimit.Result
}

// SiteResolver is satisfied by *sites.Resolver.
type SiteResolver interface {
	Resolve(ctx context.Context, token string) (models.Site, error)
}

// EventSink is satisfied by *writer.Writer. Enqueue must not block.
type EventSink interface {
	Enqueue(ev models.PageviewEvent) error
}

// Config holds the per-request budgets of the endpoint.
type Config struct {
	RateLimit    int
	RateWindow   time.Duration
	MaxBodyBytes int64
}

// Handler serves /api/track.
type Handler struct {
	limiter  RateLimiter
	resolver SiteResolver
	sink     EventSink
	cfg      Config

	now       func() time.Time
	newID     func() (uuid.UUID, error)
	classify  func(string) useragent.Result
	geolocate func(string) clientip.Location

	sinkLog rate.Sometimes
}

// Option customizes a Handler.
type Option func(*Handler)

// WithClock replaces time.Now for CreatedAt and rate limit headers.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithIDGenerator replaces uuid.NewV7.
func WithIDGenerator(fn func() (uuid.UUID, error)) Option {
	return func(h *Handler) { h.newID = fn }
}

// WithClassifier replaces useragent.Classify.
func WithClassifier(fn func(string) useragent.Result) Option {
	return func(h *Handler) { h.classify = fn }
}

// WithGeolocator replaces clientip.Geolocate.
func WithGeolocator(fn func(string) clientip.Location) Option {
	return func(h *Handler) { h.geolocate = fn }
}

// NewHandler wires the endpoint to its collaborators.
func NewHandler(limiter RateLimiter, resolver SiteResolver, sink EventSink, cfg Config, opts ...Option) *Handler {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = DefaultRateWindow
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	h := &Handler{
		limiter:   limiter,
		resolver:  resolver,
		sink:      sink,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewV7,
		classify:  useragent.Classify,
		geolocate: clientip.Geolocate,
		sinkLog:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Track handles POST /api/track.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := &trackWriter{ResponseWriter: w}
	setCORSHeaders(rw.Header())

	outcome := metrics.OutcomeAccepted
	defer func() {
		if rec := recover(); rec != nil {
			outcome = metrics.OutcomeRecovered
			logging.Ctx(r.Context()).Error().
				Str("panic", fmt.Sprint(rec)).
				Msg("Recovered from panic in track pipeline")
			if !rw.written {
				writeTrackJSON(rw, http.StatusOK, models.TrackResponse{Success: true, ID: uuid.New().String()})
			}
		}
		metrics.RecordTrackRequest(outcome, time.Since(start))
	}()

	outcome = h.track(rw, r)
}

// track runs the pipeline and returns the metrics outcome.
func (h *Handler) track(w *trackWriter, r *http.Request) string {
	ctx := r.Context()
	ip := clientip.FromRequest(r)

	limit := h.limiter.Check(ip, h.cfg.RateLimit, h.cfg.RateWindow)
	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(limit.Limit))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(limit.Remaining))
	if !limit.Allowed {
		retryAfter := limit.RetryAfter(h.now())
		w.Header().Set(HeaderRateLimitReset, strconv.FormatInt(limit.ResetAt.Unix(), 10))
		w.Header().Set(HeaderRetryAfter, strconv.Itoa(retryAfter))
		writeTrackJSON(w, http.StatusTooManyRequests, models.TrackResponse{
			Error:      MsgRateLimitExceeded,
			RetryAfter: &retryAfter,
		})
		return metrics.OutcomeRateLimited
	}

	maskedIP := clientip.Mask(ip)
	log := logging.Ctx(ctx).With().Str("masked_ip", maskedIP).Logger()

	payload, err := decodePayload(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring unparseable track body")
		h.accept(w)
		return metrics.OutcomeMalformed
	}

	if verr := validation.ValidateStruct(&payload); verr != nil {
		log.Debug().Strs("fields", verr.Fields()).Msg("Rejected invalid pageview")
		writeTrackJSON(w, http.StatusBadRequest, models.TrackResponse{Error: MsgInvalidPayload})
		return metrics.OutcomeInvalid
	}

	site, err := h.resolver.Resolve(ctx, payload.SiteID)
	switch {
	case errors.Is(err, sites.ErrSiteNotFound):
		writeTrackJSON(w, http.StatusNotFound, models.TrackResponse{Error: MsgInvalidSite})
		return metrics.OutcomeUnknownSite
	case err != nil:
		log.Error().Err(err).Msg("Site resolution failed, dropping pageview")
		h.accept(w)
		return metrics.OutcomeRecovered
	}

	occurredAt, err := parseTimestamp(payload.Timestamp)
	if err != nil {
		log.Warn().Err(err).Str("site_id", site.ID).Msg("Dropping pageview with unparseable timestamp")
		h.accept(w)
		return metrics.OutcomeMalformed
	}

	id, err := h.newID()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate pageview id")
		h.accept(w)
		return metrics.OutcomeRecovered
	}

	ua := h.classify(payload.UserAgent)
	loc := h.geolocate(ip)

	ev := models.PageviewEvent{
		ID:             id.String(),
		SiteID:         site.ID,
		Pathname:       payload.Pathname,
		Hostname:       payload.Hostname,
		Referrer:       payload.Referrer,
		VisitorID:      payload.VisitorID,
		Device:         ua.Device,
		Browser:        ua.Browser,
		BrowserVersion: ua.BrowserVersion,
		OS:             ua.OS,
		OSVersion:      ua.OSVersion,
		Country:        loc.Country,
		CountryCode:    loc.CountryCode,
		IPAddress:      maskedIP,
		Language:       payload.Language,
		Duration:       payload.Duration,
		Timestamp:      occurredAt,
		CreatedAt:      h.now().UTC(),
	}

	if err := h.sink.Enqueue(ev); err != nil {
		h.sinkLog.Do(func() {
			log.Warn().Err(err).Str("site_id", site.ID).Msg("Pageview not queued")
		})
	}

	writeTrackJSON(w, http.StatusOK, models.TrackResponse{Success: true, ID: ev.ID})
	return metrics.OutcomeAccepted
}

// accept writes the benign success response used whenever the pipeline
// gives up after the rate check. The id is fresh and refers to no stored
// event.
func (h *Handler) accept(w *trackWriter) {
	id, err := h.newID()
	if err != nil {
		id = uuid.New()
	}
	writeTrackJSON(w, http.StatusOK, models.TrackResponse{Success: true, ID: id.String()})
}

// Preflight handles OPTIONS /api/track.
func (h *Handler) Preflight(w http.ResponseWriter, _ *http.Request) {
	setCORSHeaders(w.Header())
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

// trackWriter records whether a response has been started so the panic
// guard never writes twice.
type trackWriter struct {
	http.ResponseWriter
	written bool
}

func (w *trackWriter) WriteHeader(code int) {
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

func writeTrackJSON(w http.ResponseWriter, status int, body models.TrackResponse) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode track response")
		data = []byte(`{"success":true}`)
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
