// Package storage persists finished scan runs to a SQLite database under the
// project's .blenddoc directory, so report and graph can render the latest
// run without rescanning.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"blenddoc/internal/config"
	"blenddoc/internal/logging"
)

// DB is a database connection with transaction helpers
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the catalog database at .blenddoc/blenddoc.db
func Open(projectRoot string, logger *logging.Logger) (*DB, error) {
	dataDir := filepath.Join(projectRoot, config.DataDirName)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", config.DataDirName, err)
	}

	dbPath := filepath.Join(dataDir, "blenddoc.db")
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between safety and performance
		"PRAGMA foreign_keys=ON",    // Enable foreign key constraints
		"PRAGMA busy_timeout=5000",  // Wait up to 5 seconds on lock
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	db := &DB{conn: conn, logger: logger, dbPath: dbPath}

	if !dbExists {
		logger.Info("creating catalog database", map[string]interface{}{
			"path": dbPath,
		})
	}
	if err := db.initializeSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.dbPath
}

// WithTx executes fn within a transaction, rolling back on error or panic
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) initializeSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	root            TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL,
	follow_external INTEGER NOT NULL DEFAULT 0,
	files_seen      INTEGER NOT NULL DEFAULT 0,
	finalized       INTEGER NOT NULL DEFAULT 0,
	failed          INTEGER NOT NULL DEFAULT 0,
	edge_count      INTEGER NOT NULL DEFAULT 0,
	cycles_broken   INTEGER NOT NULL DEFAULT 0,
	unresolved_refs INTEGER NOT NULL DEFAULT 0,
	external_refs   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS files (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	path        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	extension   TEXT NOT NULL DEFAULT '',
	size_bytes  INTEGER NOT NULL DEFAULT 0,
	fail_reason TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS edges (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	from_path     TEXT NOT NULL,
	to_path       TEXT NOT NULL,
	external      INTEGER NOT NULL DEFAULT 0,
	unresolved    INTEGER NOT NULL DEFAULT 0,
	cycle_closing INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(run_id, path);
`
	_, err := db.conn.Exec(schema)
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
