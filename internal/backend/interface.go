// Package backend builds the configured report source.
package backend

import (
	"context"
	"time"

	"transstats/internal/reports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// SourceResult contains the report source and optional cleanup function.
// Importer is nil for read-only sources (http, gcs).
type SourceResult struct {
	Fetcher  reports.Fetcher
	Importer reports.Importer
	Cleanup  CleanupFunc
}

// Close runs Cleanup when present.
func (r *SourceResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates report sources based on configuration
type Factory interface {
	// CreateSource creates a report source instance based on the provided config
	CreateSource(ctx context.Context, config Config) (*SourceResult, error)
}

// Config holds configuration for source creation
type Config struct {
	// Source type
	Type SourceType

	// Directory specific
	Directory string

	// HTTP specific
	BaseURL     string
	HTTPTimeout time.Duration

	// Google Cloud Storage specific
	GCSBucket      string
	GCSPrefix      string
	GCSCredentials string
	GCSEndpoint    string

	// Database specific
	SQLiteDBPath string
	MySQLDSN     string
}

// SourceType represents the type of report source
type SourceType string

const (
	DirSource    SourceType = "dir"
	HTTPSource   SourceType = "http"
	GCSSource    SourceType = "gcs"
	SQLiteSource SourceType = "sqlite"
	MySQLSource  SourceType = "mysql"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case DirSource, HTTPSource, GCSSource, SQLiteSource, MySQLSource:
		return true
	default:
		return false
	}
}
