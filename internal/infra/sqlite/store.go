// Package sqlite provides a SQLite-backed key/value store for site settings.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	zlog "github.com/rs/zerolog/log"
)

// DefaultPath is the default database location.
const DefaultPath = "data/settings.db"

const schema = `
CREATE TABLE IF NOT EXISTS site_settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Config represents SQLite store configuration.
type Config struct {
	Path string `yaml:"path" mapstructure:"path" default:"data/settings.db" validate:"required"`
}

// Store keeps site settings in a single SQLite table.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens the database, creating the file and schema if needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open settings database")
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to settings database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	zlog.Info().Msgf("sqlite: settings database opened: path=%s", path)
	return &Store{db: db, path: path, now: time.Now}, nil
}

// All returns every stored setting.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM site_settings`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query settings")
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan setting")
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read settings")
	}
	return values, nil
}

// Get returns a single setting. ok is false if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM site_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to get setting: %s", key)
	}
	return value, true, nil
}

// Set inserts or replaces a setting.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO site_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return errors.Wrapf(err, "failed to set setting: %s", key)
	}
	return nil
}

// UpdatedAt returns when a setting was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM site_settings WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to get update time: %s", key)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid update time: %s", raw)
	}
	return t, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
