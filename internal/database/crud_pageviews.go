// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/models"
)

const insertPageviewSQL = `
	INSERT INTO pageviews (
		id, site_id, pathname, hostname, referrer, visitor_id,
		device, browser, browser_version, os, os_version,
		country, country_code, ip_address, language, duration,
		occurred_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

// InsertPageviews stores events in a single transaction.
// Either every event is stored or none is. A rejection caused by an event's
// values wraps models.ErrInvalidEvent.
func (db *DB) InsertPageviews(ctx context.Context, events []models.PageviewEvent) (err error) {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert", "pageviews", time.Since(start), err)
	}()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertPageviewSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range events {
		e := &events[i]
		if _, err = stmt.ExecContext(ctx,
			e.ID, e.SiteID, e.Pathname, e.Hostname, e.Referrer, e.VisitorID,
			e.Device, e.Browser, e.BrowserVersion, e.OS, e.OSVersion,
			e.Country, e.CountryCode, e.IPAddress, e.Language, e.Duration,
			e.Timestamp.UTC(), e.CreatedAt.UTC(),
		); err != nil {
			err = classifyInsertError(err)
			return fmt.Errorf("failed to insert pageview %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pageviews: %w", classifyInsertError(err))
	}
	return nil
}

// GetPageview returns one stored event by id.
func (db *DB) GetPageview(ctx context.Context, id string) (*models.PageviewEvent, error) {
	var e models.PageviewEvent
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, site_id, pathname, hostname, referrer, visitor_id,
			device, browser, browser_version, os, os_version,
			country, country_code, ip_address, language, duration,
			occurred_at, created_at
		FROM pageviews WHERE id = $1`, id,
	).Scan(
		&e.ID, &e.SiteID, &e.Pathname, &e.Hostname, &e.Referrer, &e.VisitorID,
		&e.Device, &e.Browser, &e.BrowserVersion, &e.OS, &e.OSVersion,
		&e.Country, &e.CountryCode, &e.IPAddress, &e.Language, &e.Duration,
		&e.Timestamp, &e.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("pageview %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pageview: %w", err)
	}
	return &e, nil
}
