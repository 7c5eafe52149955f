package storage

import (
	"database/sql"
	"fmt"
)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// WAL lets readers proceed while the single writer holds the lock
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// seq fixes sheet order; row indexes are derived from it on read.
	// Unique fields are enforced by the duplicate scan, not by constraints,
	// so rows imported from a legacy sheet with collisions still load.
	schema := `
	CREATE TABLE IF NOT EXISTS lead (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		loan_code TEXT NOT NULL,
		application_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		mobile_number TEXT NOT NULL,
		status TEXT NOT NULL,
		sub_status TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_lead_loan_code ON lead(loan_code);
	CREATE INDEX IF NOT EXISTS idx_lead_created_at ON lead(created_at);

	CREATE TABLE IF NOT EXISTS contest (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		slabs TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		recipients TEXT NOT NULL,
		subject TEXT NOT NULL,
		html TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL,
		last_attempted_at TEXT NOT NULL DEFAULT '',
		next_attempt_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		message_id TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox(status, next_attempt_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
