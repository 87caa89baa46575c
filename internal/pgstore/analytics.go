// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/tally/internal/database/query"
	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/models"
)

// Summary returns totals, unique visitors, bounce rate and mean duration
// for one site over [f.From, f.To).
func (s *Store) Summary(ctx context.Context, f models.StatsFilter) (*models.SummaryStats, error) {
	start := time.Now()
	sql, args := query.Summary(f)

	var stats models.SummaryStats
	var bounced int64
	err := s.pool.QueryRow(ctx, sql, args...).
		Scan(&stats.Pageviews, &stats.Visitors, &bounced, &stats.AvgDuration)
	metrics.RecordDBQuery("summary", "pageviews", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}

	stats.BounceRate = query.BounceRate(bounced, stats.Visitors)
	return &stats, nil
}

// Breakdown groups a site's pageviews by dim, busiest first.
func (s *Store) Breakdown(ctx context.Context, f models.StatsFilter, dim models.Dimension) ([]models.BreakdownRow, error) {
	sql, args, err := query.Breakdown(f, dim)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		metrics.RecordDBQuery("breakdown_"+string(dim), "pageviews", time.Since(start), err)
		return nil, fmt.Errorf("query %s breakdown: %w", dim, err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.BreakdownRow, error) {
		var r models.BreakdownRow
		err := row.Scan(&r.Value, &r.Pageviews, &r.Visitors)
		return r, err
	})
	metrics.RecordDBQuery("breakdown_"+string(dim), "pageviews", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("scan %s breakdown: %w", dim, err)
	}
	return result, nil
}

// Timeseries buckets a site's pageviews by interval, oldest first.
func (s *Store) Timeseries(ctx context.Context, f models.StatsFilter, interval models.Interval) ([]models.TimeBucket, error) {
	sql, args, err := query.Timeseries(f, interval)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		metrics.RecordDBQuery("timeseries", "pageviews", time.Since(start), err)
		return nil, fmt.Errorf("query timeseries: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TimeBucket, error) {
		var b models.TimeBucket
		err := row.Scan(&b.Start, &b.Pageviews, &b.Visitors)
		b.Start = b.Start.UTC()
		return b, err
	})
	metrics.RecordDBQuery("timeseries", "pageviews", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("scan timeseries: %w", err)
	}
	return result, nil
}
