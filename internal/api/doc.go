// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

/*
Package api assembles the HTTP surface of the server.

Routes:

	POST    /api/track                                  ingestion (package ingest)
	OPTIONS /api/track                                  static CORS preflight
	GET     /metrics                                    Prometheus exposition
	GET     /api/v1/health/live                         liveness
	GET     /api/v1/health/ready                        readiness (store ping, writer state)
	GET     /api/v1/sites/{siteID}/stats/summary        totals, visitors, bounce rate
	GET     /api/v1/sites/{siteID}/stats/pages          top pathnames
	GET     /api/v1/sites/{siteID}/stats/referrers      top referrers
	GET     /api/v1/sites/{siteID}/stats/devices        device breakdown
	GET     /api/v1/sites/{siteID}/stats/browsers       browser breakdown
	GET     /api/v1/sites/{siteID}/stats/os             operating system breakdown
	GET     /api/v1/sites/{siteID}/stats/countries      country breakdown
	GET     /api/v1/sites/{siteID}/stats/timeseries     pageviews per hour or day

The stats routes are only mounted when a JWT secret is configured. They
sit behind go-chi/cors, go-chi/httprate and bearer authentication, and
take from and to (RFC 3339, required) plus an optional limit (1-100).

Stats and health responses use the models.APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","query_time_ms":3}}
	{"status":"error","error":{"code":"VALIDATION_ERROR","message":"..."},"metadata":{...}}

The tracking endpoint keeps its own minimal response shape.
*/
package api
