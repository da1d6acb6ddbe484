// Package sqlite mirrors crawl records into a queryable SQLite catalog.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// migrations are applied in order; PRAGMA user_version records how many
// have run, so reopening a catalog only applies the new ones.
var migrations = []string{
	`CREATE TABLE runs (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		markdown_bytes INTEGER NOT NULL DEFAULT 0,
		images INTEGER NOT NULL DEFAULT 0,
		video_links INTEGER NOT NULL DEFAULT 0,
		unique_media INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		resumed INTEGER NOT NULL DEFAULT 0,
		degraded INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT NOT NULL,
		fatal TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE pages (
		url TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		markdown TEXT NOT NULL DEFAULT '',
		raw_content_hash TEXT NOT NULL DEFAULT '',
		http_status INTEGER NOT NULL,
		fetched_at TEXT NOT NULL,
		depth INTEGER NOT NULL DEFAULT 0,
		outbound_links TEXT NOT NULL DEFAULT '[]'
	);
	CREATE TABLE media (
		kind TEXT NOT NULL,
		source_page_url TEXT NOT NULL,
		media_url TEXT NOT NULL,
		alt_text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (kind, source_page_url, media_url)
	);
	CREATE TABLE errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		error_kind TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		attempt INTEGER NOT NULL DEFAULT 0,
		http_status INTEGER NOT NULL DEFAULT 0,
		occurred_at TEXT NOT NULL
	);
	CREATE INDEX idx_media_media_url ON media(media_url);
	CREATE INDEX idx_errors_url ON errors(url);
	CREATE INDEX idx_errors_kind ON errors(error_kind);`,
	`ALTER TABLE pages ADD COLUMN screenshot_file TEXT NOT NULL DEFAULT '';`,
}

// DB is a single-writer SQLite connection holding the catalog schema.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB returns a DB for path. Use ":memory:" for a throwaway catalog.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open connects, applies connection pragmas and migrates the schema.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("opening catalog %s: %w", db.path, err)
	}
	// One writer at a time; extra connections only contend for the lock.
	conn.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"}
	if db.path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return fmt.Errorf("opening catalog %s: %s: %w", db.path, p, err)
		}
	}

	db.db = conn
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		db.db = nil
		return fmt.Errorf("migrating catalog %s: %w", db.path, err)
	}
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	var version int
	if err := db.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	for i := version; i < len(migrations); i++ {
		tx, err := db.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the connection. It is safe on a DB that never opened.
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// QueryRowContext runs a query expected to return at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext runs a query returning rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext runs a statement without rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}
