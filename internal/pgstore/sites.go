// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/models"
)

// FindSiteByPublicToken returns the site registered under token, or
// (nil, nil) if there is none.
func (s *Store) FindSiteByPublicToken(ctx context.Context, token string) (*models.Site, error) {
	start := time.Now()

	var site models.Site
	err := s.pool.QueryRow(ctx,
		`SELECT id, public_token, name FROM sites WHERE public_token = $1`, token,
	).Scan(&site.ID, &site.PublicToken, &site.Name)

	if isNoRows(err) {
		metrics.RecordDBQuery("select", "sites", time.Since(start), nil)
		return nil, nil
	}
	metrics.RecordDBQuery("select", "sites", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query site by token: %w", err)
	}
	return &site, nil
}

// GetSite returns the site with the given internal id.
func (s *Store) GetSite(ctx context.Context, id string) (*models.Site, error) {
	var site models.Site
	err := s.pool.QueryRow(ctx,
		`SELECT id, public_token, name FROM sites WHERE id = $1`, id,
	).Scan(&site.ID, &site.PublicToken, &site.Name)

	if isNoRows(err) {
		return nil, fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}
	return &site, nil
}

// EnsureSite inserts site, or renames it if the id already exists.
func (s *Store) EnsureSite(ctx context.Context, site models.Site) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sites (id, public_token, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		site.ID, site.PublicToken, site.Name, time.Now().UTC(),
	)
	metrics.RecordDBQuery("upsert", "sites", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("ensure site %s: %w", site.ID, err)
	}
	return nil
}
