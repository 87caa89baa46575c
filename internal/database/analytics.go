// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tally/internal/database/query"
	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/models"
)

// Summary returns totals, unique visitors, bounce rate and mean duration
// for one site over [f.From, f.To).
func (db *DB) Summary(ctx context.Context, f models.StatsFilter) (*models.SummaryStats, error) {
	start := time.Now()
	sqlStr, args := query.Summary(f)

	var stats models.SummaryStats
	var bounced int64
	err := db.conn.QueryRowContext(ctx, sqlStr, args...).
		Scan(&stats.Pageviews, &stats.Visitors, &bounced, &stats.AvgDuration)
	metrics.RecordDBQuery("summary", "pageviews", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	stats.BounceRate = query.BounceRate(bounced, stats.Visitors)
	return &stats, nil
}

// Breakdown groups a site's pageviews by dim, busiest first.
func (db *DB) Breakdown(ctx context.Context, f models.StatsFilter, dim models.Dimension) ([]models.BreakdownRow, error) {
	sqlStr, args, err := query.Breakdown(f, dim)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, sqlStr, args...)
	metrics.RecordDBQuery("breakdown_"+string(dim), "pageviews", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s breakdown: %w", dim, err)
	}
	defer closeQuietly(rows)

	result := make([]models.BreakdownRow, 0)
	for rows.Next() {
		var r models.BreakdownRow
		if err := rows.Scan(&r.Value, &r.Pageviews, &r.Visitors); err != nil {
			return nil, fmt.Errorf("failed to scan %s breakdown: %w", dim, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s breakdown: %w", dim, err)
	}
	return result, nil
}

// Timeseries buckets a site's pageviews by interval, oldest first.
func (db *DB) Timeseries(ctx context.Context, f models.StatsFilter, interval models.Interval) ([]models.TimeBucket, error) {
	sqlStr, args, err := query.Timeseries(f, interval)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, sqlStr, args...)
	metrics.RecordDBQuery("timeseries", "pageviews", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeseries: %w", err)
	}
	defer closeQuietly(rows)

	result := make([]models.TimeBucket, 0)
	for rows.Next() {
		var b models.TimeBucket
		if err := rows.Scan(&b.Start, &b.Pageviews, &b.Visitors); err != nil {
			return nil, fmt.Errorf("failed to scan timeseries: %w", err)
		}
		b.Start = b.Start.UTC()
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timeseries: %w", err)
	}
	return result, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
