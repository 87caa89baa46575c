// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package models

import "time"

// TrackResponse is the body returned by POST /api/track.
type TrackResponse struct {
	Success    bool   `json:"success"`
	ID         string `json:"id,omitempty"`
	Error      string `json:"error,omitempty"`
	RetryAfter *int   `json:"retryAfter,omitempty"`
}

// APIResponse wraps every stats API response.
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"...","query_time_ms":4}}
//	{"status":"error","error":{"code":"VALIDATION_ERROR","message":"..."},"metadata":{...}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata is attached to every APIResponse.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError describes a failed stats API request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
