// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package database

import (
	"errors"
	"fmt"
	"io"

	duckdb "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/tally/internal/logging"
	"github.com/tomtom215/tally/internal/models"
)

// ErrNotFound is returned by lookups by primary key that match no row.
var ErrNotFound = errors.New("not found")

// classifyInsertError wraps models.ErrInvalidEvent around DuckDB errors
// caused by the inserted values. Other errors are returned unchanged.
func classifyInsertError(err error) error {
	var dErr *duckdb.Error
	if !errors.As(err, &dErr) {
		return err
	}
	switch dErr.Type {
	case duckdb.ErrorTypeConstraint,
		duckdb.ErrorTypeConversion,
		duckdb.ErrorTypeInvalidInput,
		duckdb.ErrorTypeMismatchType,
		duckdb.ErrorTypeOutOfRange:
		return fmt.Errorf("%w: %w", models.ErrInvalidEvent, err)
	default:
		return err
	}
}

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use it in error paths where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
