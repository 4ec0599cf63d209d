package storage

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is bumped whenever InitDB's schema changes.
const SchemaVersion = 2

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sponsor_level (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		ord INTEGER NOT NULL UNIQUE,
		cost INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sponsor (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		external_url TEXT NOT NULL DEFAULT '',
		level_id TEXT NOT NULL,
		applicant_name TEXT NOT NULL DEFAULT '',
		applicant_email TEXT NOT NULL DEFAULT '',
		contact_name TEXT NOT NULL DEFAULT '',
		web_logo TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 0,
		added_at TEXT NOT NULL,
		FOREIGN KEY (level_id) REFERENCES sponsor_level(id)
	);

	CREATE TABLE IF NOT EXISTS sponsor_contact_email (
		sponsor_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		email TEXT NOT NULL,
		PRIMARY KEY (sponsor_id, position),
		FOREIGN KEY (sponsor_id) REFERENCES sponsor(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sponsor_benefit (
		id TEXT PRIMARY KEY,
		sponsor_id TEXT NOT NULL,
		benefit_name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		upload TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (sponsor_id) REFERENCES sponsor(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sponsor_level ON sponsor(level_id, added_at);
	CREATE INDEX IF NOT EXISTS idx_sponsor_benefit_lookup ON sponsor_benefit(sponsor_id, benefit_name, active);

	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT 'info',
		actor TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_audit_event_time ON audit_event(timestamp);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	}
	// Every change so far only adds tables, so older databases just need the marker moved.
	if _, err := db.Exec("UPDATE schema_version SET version = ? WHERE version < ?", SchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}
