// Package sqlite is a single-file implementation of the invoice store for
// local development and the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bq "github.com/bilix/bilix/internal/bigquery"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dateFormat = "2006-01-02"
	tsFormat   = time.RFC3339Nano
)

// Store implements bq.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ bq.Store = (*Store)(nil)

// Open opens (creating when needed) the database at dbPath and applies the schema.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("Open: empty database path")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("Open: creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("Open: opening database: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: statement %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS invoices (
		invoice_id   TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		invoice_type TEXT NOT NULL,
		status       TEXT NOT NULL,
		issue_date   TEXT NOT NULL,
		due_date     TEXT,
		amount       TEXT,
		currency     TEXT NOT NULL DEFAULT '',
		category_id  TEXT,
		vendor_id    TEXT,
		document_id  TEXT,
		tags         TEXT NOT NULL DEFAULT '[]',
		notes        TEXT,
		created_ts   TEXT NOT NULL,
		updated_ts   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_user_date ON invoices(user_id, issue_date)`,
	`CREATE TABLE IF NOT EXISTS line_items (
		line_item_id TEXT PRIMARY KEY,
		invoice_id   TEXT NOT NULL REFERENCES invoices(invoice_id) ON DELETE CASCADE,
		line_index   INTEGER NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		quantity     TEXT NOT NULL,
		unit_price   TEXT NOT NULL,
		total_price  TEXT NOT NULL,
		tax_rate     TEXT,
		tax_amount   TEXT,
		discount     TEXT,
		attributes   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_line_items_invoice ON line_items(invoice_id, line_index)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		vendor_id  TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		email      TEXT,
		phone      TEXT,
		address    TEXT,
		created_ts TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		color       TEXT,
		created_ts  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		document_id       TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		gcs_uri           TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		file_mime_type    TEXT NOT NULL,
		checksum_sha256   TEXT NOT NULL,
		status            TEXT NOT NULL,
		invoice_id        TEXT,
		upload_ts         TEXT NOT NULL,
		processed_ts      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_checksum ON documents(user_id, checksum_sha256)`,
	`CREATE TABLE IF NOT EXISTS model_outputs (
		output_id   TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		model_name  TEXT NOT NULL,
		raw_json    TEXT,
		created_ts  TEXT NOT NULL
	)`,
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsFormat)
}

func parseTS(s string) time.Time {
	t, err := time.Parse(tsFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
