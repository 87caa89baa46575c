// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

/*
Package ingest implements the public tracking endpoint, POST /api/track.

Each request moves through a fixed pipeline:

 1. rate check keyed by the client address (429 when exhausted)
 2. body decode (unparseable bodies are answered with 200)
 3. required field validation (400 "Invalid pageview data")
 4. site resolution through the cached registry (404 "Invalid site ID")
 5. enrichment: user-agent classification, IP masking and geolocation
 6. hand-off to the asynchronous writer, never awaited
 7. 200 {"success":true,"id":"..."} with X-RateLimit-* headers

The endpoint is fail-open: anything that goes wrong outside validation and
site resolution, including panics, still yields a 200 response because the
caller is a snippet running on a third-party page. Only the masked client
address is ever logged or stored.

OPTIONS /api/track is answered statically with permissive CORS headers.

The Handler owns no global state. The limiter, resolver and writer are
injected and their lifecycles are managed by the supervisor tree.
*/
package ingest
