// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

/*
Package cache provides a thread-safe in-memory cache with fixed expiry.

Every entry gets an absolute deadline when it is stored. Reads never extend
it, and an entry at or past its deadline is never returned. Expired entries
are removed lazily by Get and in bulk by Cleanup, which Serve runs on a
ticker for as long as its context lives.

# Usage Example

	c := cache.New[models.Site](5 * time.Minute)

	c.Set(site.PublicToken, site)

	if s, ok := c.Get(token); ok {
	    // use s
	}

	// run the reaper under a supervisor
	supervisor.Add(c)

# Thread Safety

All methods are safe for concurrent use. Statistics are kept separately from
the entries so that GetStats never blocks writers for long.
*/
package cache
