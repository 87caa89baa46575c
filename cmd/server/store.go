// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/tally/internal/api"
	"github.com/tomtom215/tally/internal/config"
	"github.com/tomtom215/tally/internal/database"
	"github.com/tomtom215/tally/internal/models"
	"github.com/tomtom215/tally/internal/pgstore"
	"github.com/tomtom215/tally/internal/sites"
	"github.com/tomtom215/tally/internal/writer"
)

// eventStore is what the server needs from a storage backend.
type eventStore interface {
	api.Store
	sites.Registry
	writer.Store
	EnsureSite(ctx context.Context, site models.Site) error
	Close() error
}

var (
	_ eventStore = (*database.DB)(nil)
	_ eventStore = (*pgstore.Store)(nil)
)

// openStore connects to the backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (eventStore, error) {
	switch cfg.Driver {
	case config.DriverDuckDB, "":
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		pg, err := pgstore.Connect(connectCtx, cfg)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// parseSeedSite parses "id:public_token[:name]".
func parseSeedSite(s string) (models.Site, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return models.Site{}, errors.New("want id:public_token[:name]")
	}
	site := models.Site{ID: parts[0], PublicToken: parts[1], Name: parts[0]}
	if len(parts) == 3 && parts[2] != "" {
		site.Name = parts[2]
	}
	return site, nil
}
