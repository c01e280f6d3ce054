// Package journal records every per-architecture scheduling decision in a
// local SQLite database, so operators can audit what a run decided (and
// what a dry run would have done) without consulting the dashboard.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Journal is the decision journal. SQLite with WAL mode; a single writer
// suffices because products are processed sequentially.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path. Pragmas and the
// schema are applied automatically; the function is idempotent.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite allows one writer at a time; keep a single connection to
	// avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

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

// BeginRun registers a bot run. Idempotent: re-registering a run id is a
// silent no-op.
func (j *Journal) BeginRun(ctx context.Context, runID string, dryRun bool) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, dry_run)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, runID, boolInt(dryRun))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
