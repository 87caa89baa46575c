// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package api

import (
	"context"
	"time"

	"github.com/tomtom215/tally/internal/models"
)

// Store is the read side of the event store. Both *database.DB and
// *pgstore.Store satisfy it.
type Store interface {
	Ping(ctx context.Context) error
	Summary(ctx context.Context, f models.StatsFilter) (*models.SummaryStats, error)
	Breakdown(ctx context.Context, f models.StatsFilter, dim models.Dimension) ([]models.BreakdownRow, error)
	Timeseries(ctx context.Context, f models.StatsFilter, interval models.Interval) ([]models.TimeBucket, error)
}

// WriterStatus reports the state of the asynchronous writer.
// *writer.Writer satisfies it.
type WriterStatus interface {
	QueueDepth() int
	BreakerState() string
}

// Handler serves the stats and health endpoints.
type Handler struct {
	store     Store
	writer    WriterStatus
	startTime time.Time
	version   string
}

// NewHandler creates a Handler. writer may be nil.
func NewHandler(store Store, writer WriterStatus, version string) *Handler {
	return &Handler{
		store:     store,
		writer:    writer,
		startTime: time.Now(),
		version:   version,
	}
}
