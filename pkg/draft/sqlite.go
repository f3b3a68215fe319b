package draft

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a durable Store backed by a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteOpts configures NewSQLiteStore.
type SQLiteOpts struct {
	DSN string
}

// SQLiteOption mutates SQLiteOpts.
type SQLiteOption func(*SQLiteOpts)

// WithDSN sets the database file path.
func WithDSN(dsn string) SQLiteOption {
	return func(o *SQLiteOpts) { o.DSN = dsn }
}

// NewSQLiteStore opens (creating if needed) the draft database and applies
// migrations.
func NewSQLiteStore(opts ...SQLiteOption) (*SQLiteStore, error) {
	var cfg SQLiteOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, errors.New("draft: sqlite DSN not set")
	}

	if dir := filepath.Dir(cfg.DSN); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("draft: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("draft: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("draft: ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("draft: run migrations: %w", err)
	}
	slog.Debug("draft sqlite store ready", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// Get returns the stored payload for key.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM drafts WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("draft: get %q: %w", key, err)
	}
	return payload, true, nil
}

// Set upserts the payload for key.
func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO drafts (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("draft: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes the entry for key; absent keys are not an error.
func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("draft: remove %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
