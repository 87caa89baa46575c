// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package config

import (
	"fmt"
	"time"
)

// Database drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Writer   WriterConfig   `koanf:"writer"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects and tunes the event store.
type DatabaseConfig struct {
	Driver    string `koanf:"driver"` // duckdb or postgres
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
	DSN       string `koanf:"dsn"`     // postgres only
	MaxConns  int32  `koanf:"max_conns"`
}

// IngestConfig controls the tracking endpoint.
type IngestConfig struct {
	RateLimitRequests      int           `koanf:"rate_limit_requests"`
	RateLimitWindow        time.Duration `koanf:"rate_limit_window"`
	RateLimitSweepInterval time.Duration `koanf:"rate_limit_sweep_interval"`
	SiteCacheTTL           time.Duration `koanf:"site_cache_ttl"`
	SiteCacheSweepInterval time.Duration `koanf:"site_cache_sweep_interval"`
	MaxBodyBytes           int64         `koanf:"max_body_bytes"`
}

// WriterConfig controls asynchronous persistence.
type WriterConfig struct {
	QueueSize       int           `koanf:"queue_size"`
	Workers         int           `koanf:"workers"`
	BatchSize       int           `koanf:"batch_size"`
	FlushInterval   time.Duration `koanf:"flush_interval"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	DrainTimeout    time.Duration `koanf:"drain_timeout"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// APIConfig controls the authenticated stats API.
type APIConfig struct {
	// JWTSecret signs stats API bearer tokens (HS256). Empty disables the
	// stats API; ingestion keeps working.
	JWTSecret         string        `koanf:"jwt_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// StatsEnabled reports whether the stats API should be mounted.
func (a APIConfig) StatsEnabled() bool {
	return a.JWTSecret != ""
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
