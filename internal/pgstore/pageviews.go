// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/models"
)

var pageviewColumns = []string{
	"id", "site_id", "pathname", "hostname", "referrer", "visitor_id",
	"device", "browser", "browser_version", "os", "os_version",
	"country", "country_code", "ip_address", "language", "duration",
	"occurred_at", "created_at",
}

// maxRowsPerStatement keeps a multi-row INSERT under the protocol limit of
// 65535 bind parameters.
const maxRowsPerStatement = 65535 / 18

// buildInsert renders one multi-row INSERT for events.
func buildInsert(events []models.PageviewEvent) (string, []any) {
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*len(pageviewColumns))

	argi := 1
	for i := range events {
		e := &events[i]
		args = append(args,
			e.ID, e.SiteID, e.Pathname, e.Hostname, e.Referrer, e.VisitorID,
			e.Device, e.Browser, e.BrowserVersion, e.OS, e.OSVersion,
			e.Country, e.CountryCode, e.IPAddress, e.Language, e.Duration,
			e.Timestamp.UTC(), e.CreatedAt.UTC(),
		)

		ph := make([]string, len(pageviewColumns))
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", argi)
			argi++
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	sql := "INSERT INTO pageviews (" + strings.Join(pageviewColumns, ",") + ") VALUES " +
		strings.Join(placeholders, ",")
	return sql, args
}

// classifyInsertError wraps models.ErrInvalidEvent around data exceptions
// (SQLSTATE class 22) and integrity violations (class 23).
func classifyInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 {
		switch pgErr.Code[:2] {
		case "22", "23":
			return fmt.Errorf("%w: %w", models.ErrInvalidEvent, err)
		}
	}
	return err
}

// InsertPageviews stores events in a single transaction.
// Either every event is stored or none is. A rejection caused by an event's
// values wraps models.ErrInvalidEvent.
func (s *Store) InsertPageviews(ctx context.Context, events []models.PageviewEvent) (err error) {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert", "pageviews", time.Since(start), err)
	}()

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for lo := 0; lo < len(events); lo += maxRowsPerStatement {
			hi := min(lo+maxRowsPerStatement, len(events))
			sql, args := buildInsert(events[lo:hi])
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("insert pageviews: %w", classifyInsertError(err))
			}
		}
		return nil
	})
	return err
}

// GetPageview returns one stored event by id.
func (s *Store) GetPageview(ctx context.Context, id string) (*models.PageviewEvent, error) {
	var e models.PageviewEvent
	err := s.pool.QueryRow(ctx,
		"SELECT "+strings.Join(pageviewColumns, ", ")+" FROM pageviews WHERE id = $1", id,
	).Scan(
		&e.ID, &e.SiteID, &e.Pathname, &e.Hostname, &e.Referrer, &e.VisitorID,
		&e.Device, &e.Browser, &e.BrowserVersion, &e.OS, &e.OSVersion,
		&e.Country, &e.CountryCode, &e.IPAddress, &e.Language, &e.Duration,
		&e.Timestamp, &e.CreatedAt,
	)
	if isNoRows(err) {
		return nil, fmt.Errorf("pageview %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pageview: %w", err)
	}
	return &e, nil
}
