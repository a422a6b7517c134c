// Package reports defines how raw monthly report files are fetched and decoded.
// Concrete sources live in subpackages (files, memory, web, gcs, sqlstore).
package reports

import (
	"context"
	"errors"

	"transstats/internal/core"
)

var (
	// ErrNotFound is returned when no report exists for a file identifier.
	ErrNotFound = errors.New("report not found")
	// ErrInvalidReport is returned when a fetched document is not a valid report.
	ErrInvalidReport = errors.New("invalid report")
)

// Ports for outbound adapters.
type (
	// Fetcher retrieves one parsed report per file identifier. Implementations
	// must be safe for concurrent use with distinct identifiers.
	Fetcher interface {
		Fetch(ctx context.Context, fileID string) (core.RawReport, error)
	}

	// Importer stores raw report documents in a report source.
	Importer interface {
		Import(ctx context.Context, fileID string, body []byte) error
	}
)

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, fileID string) (core.RawReport, error)

func (f FetcherFunc) Fetch(ctx context.Context, fileID string) (core.RawReport, error) {
	return f(ctx, fileID)
}
