// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package database

import (
	"context"
	"fmt"
)

// Timestamps are stored as UTC in TIMESTAMP columns; TIMESTAMPTZ needs the
// ICU extension, which is never autoloaded. pageviews.site_id carries no
// foreign key because DuckDB cannot cascade deletes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		public_token TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pageviews (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		pathname TEXT NOT NULL,
		hostname TEXT NOT NULL,
		referrer TEXT,
		visitor_id TEXT NOT NULL,
		device TEXT NOT NULL,
		browser TEXT NOT NULL,
		browser_version TEXT NOT NULL,
		os TEXT NOT NULL,
		os_version TEXT NOT NULL,
		country TEXT,
		country_code TEXT,
		ip_address TEXT NOT NULL,
		language TEXT,
		duration DOUBLE,
		occurred_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pageviews_site_time ON pageviews (site_id, occurred_at)`,
}

// createTables creates the schema if it does not exist yet.
func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
