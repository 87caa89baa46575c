// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/tally/internal/api"
	"github.com/tomtom215/tally/internal/auth"
	"github.com/tomtom215/tally/internal/cache"
	"github.com/tomtom215/tally/internal/config"
	"github.com/tomtom215/tally/internal/ingest"
	"github.com/tomtom215/tally/internal/logging"
	"github.com/tomtom215/tally/internal/metrics"
	"github.com/tomtom215/tally/internal/ratelimit"
	"github.com/tomtom215/tally/internal/sites"
	"github.com/tomtom215/tally/internal/supervisor"
	"github.com/tomtom215/tally/internal/supervisor/services"
	"github.com/tomtom215/tally/internal/writer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

//nolint:gocyclo // Sequential setup steps
func run() error {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("driver", cfg.Database.Driver).
		Str("environment", cfg.Server.Environment).
		Bool("stats_api", cfg.API.StatsEnabled()).
		Msg("Starting Tally")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()

	if seed := os.Getenv("TALLY_SEED_SITE"); seed != "" {
		site, err := parseSeedSite(seed)
		if err != nil {
			return err
		}
		if err := store.EnsureSite(ctx, site); err != nil {
			return err
		}
		logging.Info().Str("site_id", site.ID).Msg("Seed site ensured")
	}

	limiter := ratelimit.New(ratelimit.WithSweepInterval(cfg.Ingest.RateLimitSweepInterval))
	resolver := sites.NewResolver(store, cfg.Ingest.SiteCacheTTL,
		cache.WithCleanupInterval(cfg.Ingest.SiteCacheSweepInterval))

	eventWriter := writer.New(store, writer.Config{
		QueueSize:       cfg.Writer.QueueSize,
		Workers:         cfg.Writer.Workers,
		BatchSize:       cfg.Writer.BatchSize,
		FlushInterval:   cfg.Writer.FlushInterval,
		WriteTimeout:    cfg.Writer.WriteTimeout,
		DrainTimeout:    cfg.Writer.DrainTimeout,
		BreakerFailures: cfg.Writer.BreakerFailures,
		BreakerTimeout:  cfg.Writer.BreakerTimeout,
	})

	trackHandler := ingest.NewHandler(limiter, resolver, eventWriter, ingest.Config{
		RateLimit:    cfg.Ingest.RateLimitRequests,
		RateWindow:   cfg.Ingest.RateLimitWindow,
		MaxBodyBytes: cfg.Ingest.MaxBodyBytes,
	})

	var jwtManager *auth.JWTManager
	if cfg.API.StatsEnabled() {
		jwtManager, err = auth.NewJWTManager(cfg.API.JWTSecret)
		if err != nil {
			return err
		}
	} else {
		logging.Info().Msg("Stats API disabled (JWT_SECRET not set)")
	}

	router := api.NewRouter(api.RouterConfig{
		Track:             trackHandler,
		Handler:           api.NewHandler(store, eventWriter, version),
		JWT:               jwtManager,
		CORSOrigins:       cfg.API.CORSOrigins,
		RateLimitRequests: cfg.API.RateLimitRequests,
		RateLimitWindow:   cfg.API.RateLimitWindow,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	treeCfg.DataShutdownTimeout = cfg.Writer.DrainTimeout + cfg.Writer.WriteTimeout + 5*time.Second

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return err
	}

	tree.AddDataService(eventWriter)
	tree.AddMaintenanceService(limiter)
	tree.AddMaintenanceService(resolver.Cache())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
