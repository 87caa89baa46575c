// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

/*
Package middleware provides the chi middleware shared by every route.

Key Components:

  - RequestID: request and correlation ids for logging.Ctx
  - Metrics: Prometheus request counters and latency, labelled by route pattern
  - AccessLog: one structured log line per request, without client addresses
  - SecurityHeaders: conservative response headers for the JSON API

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)

Metrics must run inside the chi router so the matched route pattern is known
when the request completes; raw paths are never used as label values.
*/
package middleware
