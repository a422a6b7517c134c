package backend

import (
	"context"
	"fmt"
	"log/slog"

	"transstats/internal/reports/files"
	"transstats/internal/reports/gcs"
	"transstats/internal/reports/sqlstore"
	"transstats/internal/reports/web"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new source factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*SourceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case DirSource:
		return f.createDirSource(config)
	case HTTPSource:
		return f.createHTTPSource(config)
	case GCSSource:
		return f.createGCSSource(ctx, config)
	case SQLiteSource:
		return f.createSQLiteSource(config)
	case MySQLSource:
		return f.createMySQLSource(config)
	default:
		return nil, fmt.Errorf("unsupported report source: %s", config.Type)
	}
}

func (f *DefaultFactory) createDirSource(config Config) (*SourceResult, error) {
	src := files.New(config.Directory)

	f.logger.Info("Initialized directory report source", "directory", config.Directory)

	return &SourceResult{Fetcher: src, Importer: src}, nil
}

func (f *DefaultFactory) createHTTPSource(config Config) (*SourceResult, error) {
	client, err := web.New(config.BaseURL, config.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP report source: %w", err)
	}

	f.logger.Info("Initialized HTTP report source",
		"base_url", config.BaseURL,
		"timeout", config.HTTPTimeout)

	return &SourceResult{Fetcher: client}, nil
}

func (f *DefaultFactory) createGCSSource(ctx context.Context, config Config) (*SourceResult, error) {
	client, err := gcs.New(ctx, gcs.Config{
		Bucket:          config.GCSBucket,
		Prefix:          config.GCSPrefix,
		CredentialsFile: config.GCSCredentials,
		Endpoint:        config.GCSEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCS report source: %w", err)
	}

	f.logger.Info("Initialized GCS report source",
		"bucket", config.GCSBucket,
		"prefix", config.GCSPrefix)

	return &SourceResult{Fetcher: client}, nil
}

func (f *DefaultFactory) createSQLiteSource(config Config) (*SourceResult, error) {
	store, err := sqlstore.OpenSQLite(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite report store: %w", err)
	}

	f.logger.Info("Initialized SQLite report source", "db_path", config.SQLiteDBPath)

	return &SourceResult{Fetcher: store, Importer: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMySQLSource(config Config) (*SourceResult, error) {
	store, err := sqlstore.OpenMySQL(config.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MySQL report store: %w", err)
	}

	f.logger.Info("Initialized MySQL report source")

	return &SourceResult{Fetcher: store, Importer: store, Cleanup: store.Close}, nil
}
