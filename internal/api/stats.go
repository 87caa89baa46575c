// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tally/internal/auth"
	"github.com/tomtom215/tally/internal/models"
)

// Bounds of the limit query parameter.
const (
	DefaultStatsLimit = 10
	MaxStatsLimit     = 100
)

// StatsRequest holds the parsed query parameters of a stats route.
type StatsRequest struct {
	From     time.Time `json:"from" validate:"required"`
	To       time.Time `json:"to" validate:"required,gtefield=From"`
	Limit    int       `json:"limit" validate:"min=1,max=100"`
	Interval string    `json:"interval" validate:"omitempty,oneof=hour day"`
}

// parseStatsRequest reads and validates the query string of r. On failure
// it writes the error response and returns false.
func parseStatsRequest(w http.ResponseWriter, r *http.Request) (StatsRequest, bool) {
	q := r.URL.Query()
	req := StatsRequest{
		Limit:    DefaultStatsLimit,
		Interval: q.Get("interval"),
	}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &req.From}, {"to", &req.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondAPIError(w, http.StatusBadRequest, &models.APIError{
				Code:    CodeValidation,
				Message: p.name + " must be an RFC 3339 timestamp",
				Details: map[string]interface{}{"field": p.name},
			})
			return req, false
		}
		*p.dst = t
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondAPIError(w, http.StatusBadRequest, &models.APIError{
				Code:    CodeValidation,
				Message: "limit must be an integer",
				Details: map[string]interface{}{"field": "limit"},
			})
			return req, false
		}
		req.Limit = n
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return req, false
	}
	return req, true
}

// statsFilter authorizes the site in the path and parses the query.
func statsFilter(w http.ResponseWriter, r *http.Request) (models.StatsFilter, StatsRequest, bool) {
	siteID := chi.URLParam(r, "siteID")
	if !auth.ClaimsFromContext(r.Context()).CanAccess(siteID) {
		respondError(w, r, http.StatusForbidden, CodeForbidden, "Token does not grant access to this site", nil)
		return models.StatsFilter{}, StatsRequest{}, false
	}

	req, ok := parseStatsRequest(w, r)
	if !ok {
		return models.StatsFilter{}, req, false
	}

	return models.StatsFilter{
		SiteID: siteID,
		From:   req.From,
		To:     req.To,
		Limit:  req.Limit,
	}, req, true
}

// StatsSummary handles GET /sites/{siteID}/stats/summary.
func (h *Handler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	filter, _, ok := statsFilter(w, r)
	if !ok {
		return
	}

	start := time.Now()
	summary, err := h.store.Summary(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeQueryFailed, "Failed to load summary", err)
		return
	}
	respondData(w, summary, start)
}

// StatsBreakdown returns the handler for one breakdown dimension.
func (h *Handler) StatsBreakdown(dim models.Dimension) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, _, ok := statsFilter(w, r)
		if !ok {
			return
		}

		start := time.Now()
		rows, err := h.store.Breakdown(r.Context(), filter, dim)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, CodeQueryFailed, "Failed to load breakdown", err)
			return
		}
		respondData(w, rows, start)
	}
}

// StatsTimeseries handles GET /sites/{siteID}/stats/timeseries.
// interval defaults to day.
func (h *Handler) StatsTimeseries(w http.ResponseWriter, r *http.Request) {
	filter, req, ok := statsFilter(w, r)
	if !ok {
		return
	}

	interval := models.IntervalDay
	if req.Interval != "" {
		interval = models.Interval(req.Interval)
	}

	start := time.Now()
	buckets, err := h.store.Timeseries(r.Context(), filter, interval)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeQueryFailed, "Failed to load time series", err)
		return
	}
	respondData(w, buckets, start)
}
