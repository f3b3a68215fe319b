package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// Submission is one stored application.
type Submission struct {
	ID        string
	FormID    string
	Values    model.FormValues
	CreatedAt time.Time
}

// SubmissionStore persists submitted applications in SQLite.
type SubmissionStore struct {
	db *sql.DB
}

// StoreOpts configures NewSubmissionStore.
type StoreOpts struct {
	DSN string
}

// StoreOption mutates StoreOpts.
type StoreOption func(*StoreOpts)

// WithDSN sets the database file path. ":memory:" works for tests.
func WithDSN(dsn string) StoreOption {
	return func(o *StoreOpts) { o.DSN = dsn }
}

// NewSubmissionStore opens (creating if needed) the submissions database and
// applies migrations.
func NewSubmissionStore(opts ...StoreOption) (*SubmissionStore, error) {
	var cfg StoreOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, errors.New("server: sqlite DSN not set")
	}

	if dir := filepath.Dir(cfg.DSN); dir != "." && cfg.DSN != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("server: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("server: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: run migrations: %w", err)
	}
	slog.Debug("submission store ready", "dsn", cfg.DSN)
	return &SubmissionStore{db: db}, nil
}

// Insert stores one submission and returns its generated identifier.
func (s *SubmissionStore) Insert(ctx context.Context, formID string, values model.FormValues) (string, error) {
	payload, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("server: encode submission: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, form_id, payload) VALUES (?, ?, ?)`,
		id, formID, string(payload))
	if err != nil {
		return "", fmt.Errorf("server: insert submission: %w", err)
	}
	return id, nil
}

// List returns all submissions, oldest first.
func (s *SubmissionStore) List(ctx context.Context) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, form_id, payload, created_at FROM submissions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("server: list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var (
			sub     Submission
			payload string
		)
		if err := rows.Scan(&sub.ID, &sub.FormID, &payload, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("server: scan submission: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &sub.Values); err != nil {
			return nil, fmt.Errorf("server: decode submission %s: %w", sub.ID, err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("server: list submissions: %w", err)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *SubmissionStore) Close() error { return s.db.Close() }
