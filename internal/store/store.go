package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema, as created by the original init script
// 1 - telemetry.results_json, selection_log.run_id, UNIQUE selection_log.selected_row_id
const currentSchemaVersion = 1

// Store provides durable storage for telemetry records and selections.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// A failure here means the store is unusable; callers treat it as fatal.
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	// _txlock=immediate makes BeginTx issue BEGIN IMMEDIATE, taking the
	// write lock before the candidate read.
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// uriEscaper percent-encodes the characters SQLite's URI filename parser
// treats as delimiters or escapes.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// dsn builds the URI filename for path with BEGIN IMMEDIATE transactions.
func dsn(path string) string {
	return "file:" + uriEscaper.Replace(path) + "?_txlock=immediate"
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.closed.Store(true)
	return s.db.Close()
}

// usable returns ErrClosed once Close has been called.
func (s *Store) usable() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithinTx runs fn inside a write transaction. The transaction commits only
// if fn returns nil; any error, including a commit failure, rolls back every
// statement fn executed.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Tx) error) error {
	if err := s.usable(); err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 brings databases created by the original init script up to
// date. New databases already have the columns from schema.sql.
func migrateToV1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v1: begin: %w", err)
	}
	defer tx.Rollback()

	columns := []struct{ table, column, ddl string }{
		{"telemetry", "results_json", "ALTER TABLE telemetry ADD COLUMN results_json TEXT"},
		{"selection_log", "run_id", "ALTER TABLE selection_log ADD COLUMN run_id TEXT NOT NULL DEFAULT ''"},
	}
	for _, c := range columns {
		exists, err := hasColumn(tx, c.table, c.column)
		if err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		if exists {
			continue
		}
		if _, err := tx.Exec(c.ddl); err != nil {
			return fmt.Errorf("migrate to v1: add %s.%s: %w", c.table, c.column, err)
		}
	}

	// CREATE UNIQUE INDEX IF NOT EXISTS is safe - no-op if index exists
	if _, err := tx.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_selection_row_unique
		ON selection_log(selected_row_id)
	`); err != nil {
		return fmt.Errorf("migrate to v1: unique selection index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate to v1: commit: %w", err)
	}
	return nil
}

func hasColumn(tx *sql.Tx, table, column string) (bool, error) {
	var count int
	err := tx.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", table, err)
	}
	return count > 0, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
