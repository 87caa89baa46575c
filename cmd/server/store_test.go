// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package main

import (
	"context"
	"testing"

	"github.com/tomtom215/tally/internal/config"
	"github.com/tomtom215/tally/internal/models"
)

func TestParseSeedSite(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Site
		wantErr bool
	}{
		{"site_1:pub_abc", models.Site{ID: "site_1", PublicToken: "pub_abc", Name: "site_1"}, false},
		{"site_1:pub_abc:My Blog", models.Site{ID: "site_1", PublicToken: "pub_abc", Name: "My Blog"}, false},
		{"site_1:pub_abc:Name: with colon", models.Site{ID: "site_1", PublicToken: "pub_abc", Name: "Name: with colon"}, false},
		{"site_1", models.Site{}, true},
		{":pub_abc", models.Site{}, true},
		{"site_1:", models.Site{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSeedSite(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSeedSite(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	if _, err := openStore(context.Background(), &config.DatabaseConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenStoreDuckDBSeedsSite(t *testing.T) {
	store, err := openStore(context.Background(), &config.DatabaseConfig{
		Driver:    config.DriverDuckDB,
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	site := models.Site{ID: "site_local", PublicToken: "pub_local", Name: "Local"}
	if err := store.EnsureSite(context.Background(), site); err != nil {
		t.Fatalf("EnsureSite: %v", err)
	}

	got, err := store.FindSiteByPublicToken(context.Background(), "pub_local")
	if err != nil {
		t.Fatalf("FindSiteByPublicToken: %v", err)
	}
	if got == nil || *got != site {
		t.Errorf("FindSiteByPublicToken = %+v, want %+v", got, site)
	}
}
