// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

/*
Package main is the entry point for the Tally ingestion server.

Tally receives pageview events from a tracking snippet embedded on customer
sites, anonymizes and enriches them, and stores them for the dashboard.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("tally")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── rate-limit-sweeper
	│   └── site-cache-cleanup
	└── APISupervisor ("api-layer")
	    └── HTTP server
	DataSupervisor ("data-layer", stopped after the root)
	└── event-writer

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog, with an slog adapter for Suture
 3. Event store: DuckDB (default) or PostgreSQL
 4. Rate limiter, site resolver and asynchronous writer
 5. HTTP router and server
 6. Supervisor tree

# Configuration

Common environment variables:

	HTTP_PORT            listen port (default 8080)
	DATABASE_DRIVER      duckdb or postgres
	DUCKDB_PATH          DuckDB file (default /data/tally.duckdb)
	DATABASE_URL         PostgreSQL DSN
	JWT_SECRET           enables the stats API
	LOG_LEVEL            trace, debug, info, warn or error
	TALLY_SEED_SITE      id:public_token[:name], created at startup

# Signal Handling

SIGINT and SIGTERM stop the HTTP server first, then the sweepers, then the
writer, which drains its queue within writer.drain_timeout. The event store
is closed last.
*/
package main
