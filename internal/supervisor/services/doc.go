// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package services adapts blocking servers to suture.Service.
//
// Components that already follow the Serve(ctx) pattern, such as the event
// writer, the rate limiter sweeper and the site cache, are added to the
// supervisor tree directly and need no wrapper.
package services
