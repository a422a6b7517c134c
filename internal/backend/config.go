package backend

import (
	"fmt"
	"strings"

	"transstats/internal/config"
)

// FromAppConfig converts the application config to source config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	sourceType := SourceType(appConfig.ReportSource)
	if !sourceType.IsValid() {
		return Config{}, fmt.Errorf("invalid report source in config: %s", appConfig.ReportSource)
	}

	return Config{
		Type: sourceType,

		Directory: appConfig.ReportDir,

		BaseURL:     appConfig.ReportBaseURL,
		HTTPTimeout: appConfig.ReportHTTPTimeout,

		GCSBucket:      appConfig.GCSBucket,
		GCSPrefix:      appConfig.GCSPrefix,
		GCSCredentials: appConfig.GCSCredentials,
		GCSEndpoint:    appConfig.GCSEndpoint,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		MySQLDSN:     appConfig.MySQLDSN,
	}, nil
}

// Validate validates the source configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid report source %q: must be one of %s", c.Type, strings.Join(GetSourceTypeStrings(), ", "))
	}

	switch c.Type {
	case DirSource:
		if c.Directory == "" {
			return fmt.Errorf("report directory is required for dir source")
		}
	case HTTPSource:
		if c.BaseURL == "" {
			return fmt.Errorf("base URL is required for http source")
		}
	case GCSSource:
		if c.GCSBucket == "" {
			return fmt.Errorf("bucket is required for gcs source")
		}
	case SQLiteSource:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite source")
		}
	case MySQLSource:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MySQL DSN is required for mysql source")
		}
	}

	return nil
}

// GetSourceTypes returns all valid source types
func GetSourceTypes() []SourceType {
	return []SourceType{DirSource, HTTPSource, GCSSource, SQLiteSource, MySQLSource}
}

// GetSourceTypeStrings returns all valid source type strings
func GetSourceTypeStrings() []string {
	types := GetSourceTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
