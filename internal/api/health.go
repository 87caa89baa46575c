// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/tally/internal/models"
)

const readinessTimeout = 2 * time.Second

// LiveStatus is the body of GET /api/v1/health/live.
type LiveStatus struct {
	Status  string  `json:"status"`
	Version string  `json:"version,omitempty"`
	Uptime  float64 `json:"uptime"`
}

// ReadyStatus is the body of GET /api/v1/health/ready.
type ReadyStatus struct {
	Status           string `json:"status"`
	Database         bool   `json:"database"`
	DatabaseError    string `json:"databaseError,omitempty"`
	WriterQueueDepth int    `json:"writerQueueDepth"`
	BreakerState     string `json:"breakerState,omitempty"`
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: statusSuccess,
		Data: LiveStatus{
			Status:  "alive",
			Version: h.version,
			Uptime:  time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady pings the store and reports the writer state. It answers
// 503 when the store is unreachable. An open circuit breaker is reported
// but does not fail readiness; ingestion keeps answering while writes are
// shed.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := ReadyStatus{Status: "ready", Database: true}
	if h.writer != nil {
		status.WriterQueueDepth = h.writer.QueueDepth()
		status.BreakerState = h.writer.BreakerState()
	}

	code := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status.Status = "not_ready"
		status.Database = false
		status.DatabaseError = sanitizeLogValue(err.Error())
		code = http.StatusServiceUnavailable
	}

	apiStatus := statusSuccess
	var apiErr *models.APIError
	if code != http.StatusOK {
		apiStatus = statusError
		apiErr = &models.APIError{Code: CodeNotReady, Message: "Event store is unreachable"}
	}

	respondJSON(w, code, &models.APIResponse{
		Status:   apiStatus,
		Data:     status,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}
