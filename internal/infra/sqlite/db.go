// Package sqlite provides SQLite-based persistent storage for MemeForge.
// Uses WAL mode for concurrent reads and crash-safe writes. The connection
// pool is pinned to a single writer, which serializes individual
// transactions; read-modify-write spans that load a payload, transform it,
// and commit are serialized per user by the stats store's lock.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// User progression state, one JSON payload per user.
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id    TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		// At-most-once intake guard. First writer wins; replay reads back
		// the cached response column verbatim.
		`CREATE TABLE IF NOT EXISTS idempotency (
			user_id    TEXT NOT NULL,
			key        TEXT NOT NULL,
			response   TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, key)
		)`,

		// Append-only reward audit log. Also serves as the weekly
		// action-count source for quest metrics.
		`CREATE TABLE IF NOT EXISTS reward_events (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			action       TEXT NOT NULL,
			delta        INTEGER NOT NULL,
			level_before INTEGER NOT NULL,
			level_after  INTEGER NOT NULL,
			cap_applied  BOOLEAN NOT NULL DEFAULT 0,
			badges       TEXT NOT NULL DEFAULT '',
			features     TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_action
			ON reward_events(user_id, action, created_at)`,

		// Per-meme engagement aggregates for proofs and boost scoring.
		`CREATE TABLE IF NOT EXISTS artifacts (
			id            TEXT PRIMARY KEY,
			author_id     TEXT NOT NULL,
			created_at    INTEGER NOT NULL,
			published     BOOLEAN NOT NULL DEFAULT 0,
			hidden        BOOLEAN NOT NULL DEFAULT 0,
			rating_sum    INTEGER NOT NULL DEFAULT 0,
			rating_count  INTEGER NOT NULL DEFAULT 0,
			unique_voters INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_author ON artifacts(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at)`,

		// Server-side vote records referenced by vote_received proofs.
		`CREATE TABLE IF NOT EXISTS votes (
			id          TEXT PRIMARY KEY,
			artifact_id TEXT NOT NULL,
			voter_id    TEXT NOT NULL,
			author_id   TEXT NOT NULL,
			rating      INTEGER NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_artifact ON votes(artifact_id)`,

		// Weekly quest tier slot pools, seeded once per (week, tier).
		`CREATE TABLE IF NOT EXISTS quest_tiers (
			week            TEXT NOT NULL,
			tier            INTEGER NOT NULL,
			slots_remaining INTEGER NOT NULL,
			PRIMARY KEY (week, tier)
		)`,

		// Quest claims, at most one per (user, week, tier).
		`CREATE TABLE IF NOT EXISTS quest_claims (
			user_id    TEXT NOT NULL,
			week       TEXT NOT NULL,
			tier       INTEGER NOT NULL,
			reward     INTEGER NOT NULL,
			boost      INTEGER NOT NULL DEFAULT 0,
			claimed_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, week, tier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_week ON quest_claims(week)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
