// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

/*
Package config loads and validates the Tally configuration.

Configuration is layered with Koanf, later layers overriding earlier ones:

 1. Struct defaults (defaultConfig)
 2. Optional YAML file: $CONFIG_PATH, then config.yaml, config.yml,
    /etc/tally/config.yaml
 3. Environment variables

Environment variables are mapped explicitly for the common settings
(HTTP_PORT, DUCKDB_PATH, DATABASE_URL, LOG_LEVEL, JWT_SECRET, ...) and
generically for everything else: SECTION_KEY becomes section.key when
SECTION is one of server, database, ingest, writer, api or logging. For
example WRITER_QUEUE_SIZE sets writer.queue_size.

Example config.yaml:

	server:
	  port: 8080
	database:
	  driver: duckdb
	  path: /data/tally.duckdb
	ingest:
	  rate_limit_requests: 1000
	  rate_limit_window: 10s
	  site_cache_ttl: 5m
	writer:
	  queue_size: 10000
	  workers: 2
	api:
	  jwt_secret: "${JWT_SECRET}"
	  cors_origins: [https://dashboard.example.com]
	logging:
	  level: info
	  format: json
*/
package config
