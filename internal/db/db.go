package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"glyphline/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/glyphline.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.glyphline.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections).
	// WAL plus busy_timeout is what lets multiple agent processes share the
	// store: each state change is a single conditional statement, so the
	// engine's compare-and-set discipline rides on SQLite's atomicity.
	dbPath := filepath.Join(baseDir, "glyphline.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS cards (
		  id                  INTEGER PRIMARY KEY,
		  title               TEXT NOT NULL,
		  project             TEXT NOT NULL,
		  assigned_to         TEXT NOT NULL,
		  status              TEXT NOT NULL,
		  size                TEXT NOT NULL,
		  deliverables_json   TEXT,
		  validation_json     TEXT,
		  context_needs_json  TEXT,
		  open_questions_json TEXT,
		  linked_to           INTEGER,
		  created_at          INTEGER NOT NULL,
		  updated_at          INTEGER NOT NULL,
		  reviewed_at         INTEGER,
		  archived_at         INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_cards_agent_status
		ON cards(assigned_to, status)
		WHERE archived_at IS NULL;

		CREATE INDEX IF NOT EXISTS idx_cards_project
		ON cards(project)
		WHERE archived_at IS NULL;

		CREATE INDEX IF NOT EXISTS idx_cards_linked_to
		ON cards(linked_to)
		WHERE linked_to IS NOT NULL;

		CREATE TABLE IF NOT EXISTS acceptance_records (
		  id          TEXT PRIMARY KEY,
		  card_id     INTEGER NOT NULL,
		  decision    TEXT NOT NULL,
		  notes       TEXT,
		  reviewer    TEXT NOT NULL,
		  created_at  INTEGER NOT NULL,
		  archived_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_acceptance_card_time
		ON acceptance_records(card_id, created_at DESC, id DESC);

		CREATE TABLE IF NOT EXISTS projects (
		  name             TEXT PRIMARY KEY,
		  description      TEXT,
		  first_activated  INTEGER,
		  last_activated   INTEGER,
		  activation_count INTEGER NOT NULL DEFAULT 0,
		  created_at       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS app_state (
		  key   TEXT PRIMARY KEY,
		  value TEXT NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
