// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package query builds the parameterized SQL shared by the DuckDB and
// PostgreSQL stores.
//
// Both engines accept numbered placeholders ($1, $2, ...), so a statement
// built here runs unchanged on either backend:
//
//	wb := query.NewWhereBuilder()
//	wb.AddSite(filter.SiteID)
//	wb.AddTimeRange(filter.From, filter.To)
//	whereClause, args := wb.Build()
//	// Result: "site_id = $1 AND occurred_at >= $2 AND occurred_at < $3"
//
// The stats builders (Summary, Breakdown, Timeseries) return complete
// statements for the read API. Column names never come from user input:
// dimensions and intervals are checked against fixed whitelists before they
// are formatted into SQL, and every value is bound as an argument.
//
// WhereBuilder instances are not safe for concurrent use.
package query
