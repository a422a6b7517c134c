package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"transstats/internal/core"
)

// Report sources
const (
	SourceDir    = "dir"
	SourceHTTP   = "http"
	SourceGCS    = "gcs"
	SourceSQLite = "sqlite"
	SourceMySQL  = "mysql"
)

var validSources = []string{SourceDir, SourceHTTP, SourceGCS, SourceSQLite, SourceMySQL}

type Config struct {
	// HTTP Server
	Port string

	// Stats
	Epoch core.PeriodKey

	// Report source selection
	ReportSource      string
	ReportDir         string
	ReportBaseURL     string
	ReportHTTPTimeout time.Duration
	FetchConcurrency  int

	// Google Cloud Storage
	GCSBucket      string
	GCSPrefix      string
	GCSCredentials string
	GCSEndpoint    string

	// Database report stores
	SQLiteDBPath string
	MySQLDSN     string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// View cache
	ViewCacheSize int
	ViewCacheTTL  time.Duration

	// HTTP protection; RateLimitPerMinute 0 disables limiting
	RateLimitPerMinute int
	TrustedProxies     []string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:  getEnv("PORT", "8081"),
		Epoch: core.PeriodKey(getEnv("STATS_EPOCH", string(core.DefaultEpoch))),

		ReportSource:      getEnv("REPORT_SOURCE", SourceDir),
		ReportDir:         getEnv("REPORT_DIR", "./data/stats"),
		ReportBaseURL:     getEnv("REPORT_BASE_URL", ""),
		ReportHTTPTimeout: getEnvDuration("REPORT_HTTP_TIMEOUT", 15*time.Second),
		FetchConcurrency:  getEnvInt("FETCH_CONCURRENCY", 0),

		GCSBucket:      getEnv("GCS_BUCKET", ""),
		GCSPrefix:      getEnv("GCS_PREFIX", ""),
		GCSCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GCSEndpoint:    getEnv("GCS_ENDPOINT", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/stats.db"),
		MySQLDSN:     getEnv("MYSQL_DSN", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "transstats"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "stats_loaded"),

		ViewCacheSize: getEnvInt("VIEW_CACHE_SIZE", 256),
		ViewCacheTTL:  getEnvDuration("VIEW_CACHE_TTL", 5*time.Minute),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := core.ParsePeriodKey(string(c.Epoch)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid stats epoch '%s': must be YYYY-MM", c.Epoch))
	}

	// Validate report source
	if !slices.Contains(validSources, c.ReportSource) {
		errors = append(errors, fmt.Sprintf("invalid report source '%s': must be one of %v", c.ReportSource, validSources))
	}

	switch c.ReportSource {
	case SourceDir:
		if c.ReportDir == "" {
			errors = append(errors, "report directory cannot be empty when using dir source")
		}
	case SourceHTTP:
		if c.ReportBaseURL == "" {
			errors = append(errors, "REPORT_BASE_URL is required when using http source")
		} else if parsedURL, err := url.Parse(c.ReportBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid report base URL '%s': %v", c.ReportBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid report base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.ReportHTTPTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid report HTTP timeout %v: must be positive", c.ReportHTTPTimeout))
		}
	case SourceGCS:
		if c.GCSBucket == "" {
			errors = append(errors, "GCS_BUCKET is required when using gcs source")
		}
		if c.GCSCredentials != "" {
			if _, err := os.Stat(c.GCSCredentials); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GCSCredentials))
			}
		}
	case SourceSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite source")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case SourceMySQL:
		if c.MySQLDSN == "" {
			errors = append(errors, "MYSQL_DSN is required when using mysql source")
		}
	}

	if c.FetchConcurrency < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch concurrency %d: must be zero (unbounded) or positive", c.FetchConcurrency))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	// Validate AMQP exchange and queue names if AMQP is configured
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate view cache
	if c.ViewCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid view cache size %d: must be at least 1", c.ViewCacheSize))
	} else if c.ViewCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid view cache size %d: must be at most 100000", c.ViewCacheSize))
	}

	if c.ViewCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid view cache TTL %v: must be at least 1 second", c.ViewCacheTTL))
	} else if c.ViewCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid view cache TTL %v: must be at most 24 hours", c.ViewCacheTTL))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be zero (disabled) or positive", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy CIDR '%s': %v", cidr, err))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
