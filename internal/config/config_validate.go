// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 1_000_000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour

	minJWTSecretLength = 32
	maxBodyBytesLimit  = 1 << 20
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateIngest,
		c.validateWriter,
		c.validateAPI,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when database.driver is duckdb")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when database.driver is postgres")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("database.max_conns must be at least 1")
		}
	default:
		return fmt.Errorf("database.driver must be one of: %s, %s", DriverDuckDB, DriverPostgres)
	}
	return nil
}

func (c *Config) validateIngest() error {
	in := c.Ingest
	if in.RateLimitRequests < minRateLimitRequests || in.RateLimitRequests > maxRateLimitRequests {
		return fmt.Errorf("ingest.rate_limit_requests must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if in.RateLimitWindow < minRateLimitWindow || in.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("ingest.rate_limit_window must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	if in.SiteCacheTTL <= 0 {
		return fmt.Errorf("ingest.site_cache_ttl must be positive")
	}
	if in.RateLimitSweepInterval <= 0 || in.SiteCacheSweepInterval <= 0 {
		return fmt.Errorf("ingest sweep intervals must be positive")
	}
	if in.MaxBodyBytes < 256 || in.MaxBodyBytes > maxBodyBytesLimit {
		return fmt.Errorf("ingest.max_body_bytes must be between 256 and %d", maxBodyBytesLimit)
	}
	return nil
}

func (c *Config) validateWriter() error {
	w := c.Writer
	switch {
	case w.QueueSize < 1:
		return fmt.Errorf("writer.queue_size must be at least 1")
	case w.Workers < 1:
		return fmt.Errorf("writer.workers must be at least 1")
	case w.BatchSize < 1:
		return fmt.Errorf("writer.batch_size must be at least 1")
	case w.BatchSize > w.QueueSize:
		return fmt.Errorf("writer.batch_size must not exceed writer.queue_size")
	case w.FlushInterval <= 0, w.WriteTimeout <= 0, w.DrainTimeout <= 0, w.BreakerTimeout <= 0:
		return fmt.Errorf("writer durations must be positive")
	case w.BreakerFailures < 1:
		return fmt.Errorf("writer.breaker_failures must be at least 1")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters for security", minJWTSecretLength)
	}
	if c.API.StatsEnabled() && c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed for the stats API in production; " +
			"set specific origins such as CORS_ORIGINS=https://dashboard.example.com")
	}
	if c.API.RateLimitRequests < minRateLimitRequests || c.API.RateLimitRequests > maxRateLimitRequests {
		return fmt.Errorf("api.rate_limit_requests must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.API.RateLimitWindow < minRateLimitWindow || c.API.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("api.rate_limit_window must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.API.CORSOrigins {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
