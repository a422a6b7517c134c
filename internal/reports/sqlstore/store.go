// Package sqlstore keeps report documents in a SQL table (stats_reports) and
// serves them as a report source. SQLite (modernc.org/sqlite) and MySQL or
// MariaDB (go-sql-driver/mysql) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"transstats/internal/core"
	"transstats/internal/reports"
)

// Dialect names a supported SQL backend; it doubles as the migrations subdirectory.
type Dialect string

const (
	SQLite Dialect = "sqlite"
	MySQL  Dialect = "mysql"
)

func (d Dialect) driverName() string {
	return string(d)
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ reports.Fetcher  = (*Store)(nil)
	_ reports.Importer = (*Store)(nil)
)

// OpenSQLite opens (creating if needed) the database file at dbPath and
// applies migrations.
func OpenSQLite(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// OpenMySQL accepts either a driver DSN (user:pass@tcp(host)/db) or a
// mysql:// / mariadb:// URL, and applies migrations.
func OpenMySQL(dsn string) (*Store, error) {
	driverDSN, err := ToMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	return open(MySQL, driverDSN)
}

func open(d Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == MySQL {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, dialect: d}, nil
}

// ToMySQLDSN rewrites mysql:// and mariadb:// URLs into the driver's DSN
// format. Other inputs are parsed as driver DSNs and normalized.
func ToMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		cfg := mysql.NewConfig()
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
			return "", errors.New("incomplete mysql dsn: user, host and database are required")
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Dialect reports which backend the store talks to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Fetch(ctx context.Context, fileID string) (core.RawReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM stats_reports WHERE file_id = ?`, fileID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RawReport{}, fmt.Errorf("%w: %s", reports.ErrNotFound, fileID)
	}
	if err != nil {
		return core.RawReport{}, fmt.Errorf("query report %s: %w", fileID, err)
	}

	r, err := reports.Decode([]byte(body))
	if err != nil {
		return core.RawReport{}, fmt.Errorf("decode %s: %w", fileID, err)
	}
	return r, nil
}

// Import validates body and upserts it under fileID.
func (s *Store) Import(ctx context.Context, fileID string, body []byte) error {
	if err := reports.Validate(body); err != nil {
		return fmt.Errorf("import %s: %w", fileID, err)
	}

	query := `INSERT INTO stats_reports (file_id, body) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET body = excluded.body, imported_at = CURRENT_TIMESTAMP`
	if s.dialect == MySQL {
		query = `INSERT INTO stats_reports (file_id, body) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE body = VALUES(body), imported_at = CURRENT_TIMESTAMP`
	}

	if _, err := s.db.ExecContext(ctx, query, fileID, string(body)); err != nil {
		return fmt.Errorf("upsert report %s: %w", fileID, err)
	}

	slog.DebugContext(ctx, "Report imported", "file_id", fileID, "bytes", len(body), "dialect", s.dialect)
	return nil
}

// List returns the stored file identifiers in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_id FROM stats_reports ORDER BY file_id`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan report id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
