// Package db provides SQLite access for the taskutils run journal.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencode-ai/taskutils/internal/logging"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// timestampLayout is fixed-width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps a SQLite connection pool.
type DB struct {
	*sql.DB
	path   string
	logger zerolog.Logger
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	return open(dsn, path)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*DB, error) {
	return open("file::memory:", ":memory:")
}

func open(dsn, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// SQLite serializes writers; one connection also keeps :memory: alive.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}

	return &DB{
		DB:     conn,
		path:   path,
		logger: logging.Component("db"),
	}, nil
}

// Path returns the database location.
func (db *DB) Path() string {
	return db.path
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		type TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		payload_json TEXT,
		metadata_json TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_entity ON events (entity_type, entity_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp, id)`,
}

// MigrateUp applies pending migrations and returns how many ran.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	applied := 0
	for i := current; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, i+1); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("commit migration %d: %w", i+1, err)
		}
		applied++
	}

	if applied > 0 {
		db.logger.Debug().Int("applied", applied).Str("path", db.path).Msg("database migrated")
	}
	return applied, nil
}
