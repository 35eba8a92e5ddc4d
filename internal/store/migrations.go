package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "tags + doses: reminder library",
		SQL: `
CREATE TABLE tags (
    name   TEXT PRIMARY KEY,
    demand REAL NOT NULL CHECK (demand > 0)
);

CREATE TABLE doses (
    id               TEXT PRIMARY KEY,
    tag_name         TEXT NOT NULL REFERENCES tags(name),
    message          TEXT NOT NULL,

    -- All three NULL for soft-only doses, all three set otherwise.
    frequency_kind   TEXT CHECK (frequency_kind IN ('at-least', 'exactly')),
    frequency_count  INTEGER CHECK (frequency_count > 0),
    frequency_period TEXT CHECK (frequency_period IN ('day', 'week', 'month')),

    created_at       INTEGER NOT NULL
);

CREATE INDEX idx_doses_tag ON doses(tag_name);
`,
	},
	{
		Version:     2,
		Description: "tracking: per-dose history and quota counters",
		SQL: `
CREATE TABLE tracking (
    dose_id         TEXT PRIMARY KEY REFERENCES doses(id) ON DELETE CASCADE,
    count_in_period INTEGER NOT NULL DEFAULT 0 CHECK (count_in_period >= 0),
    period_start    INTEGER NOT NULL,
    last_shown_at   INTEGER
);
`,
	},
	{
		Version:     3,
		Description: "digest_log: per-cycle selection diagnostics",
		SQL: `
CREATE TABLE digest_log (
    id      INTEGER PRIMARY KEY,
    dose_id TEXT NOT NULL,
    run_at  INTEGER NOT NULL,
    path    TEXT NOT NULL CHECK (path IN ('priority', 'sampled'))
);

CREATE INDEX idx_digest_log_run ON digest_log(run_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
