// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package models defines the data types shared by the ingestion pipeline,
// the storage backends and the stats API.
//
// PageviewEvent is write-once: it is built by the ingestion handler, handed
// to the asynchronous writer and never mutated afterwards. Site is the
// minimal projection of a registry row that ingestion needs.
package models
