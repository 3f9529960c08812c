package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/memeforge-network/memeforge/internal/domain"
)

// ─── User Stats ─────────────────────────────────────────────────────────────

// GetUserStats loads a user's stats payload. Returns (nil, nil) when the
// user has no row yet.
func (d *DB) GetUserStats(userID string) (*domain.UserStats, error) {
	var payload string
	err := d.db.QueryRow(
		`SELECT payload FROM user_stats WHERE user_id = ?`, userID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStats(payload)
}

// SaveUserStats upserts a user's stats payload outside any action commit.
// Used for rollover persistence and admin adjustments.
func (d *DB) SaveUserStats(stats domain.UserStats, now time.Time) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO user_stats (user_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		stats.UserID, string(payload), now.Unix(),
	)
	return err
}

// CommitAction atomically records one credited action: the idempotency row,
// the updated stats payload, the audit event, and (for generate/publish/vote
// actions) the artifact row or vote record, all in one transaction. The vote
// path folds the rating into the artifact aggregates with relative updates.
// If another writer already committed the same (user, key), nothing is
// written and the original cached response comes back with replayed=true.
func (d *DB) CommitAction(stats domain.UserStats, rec domain.IdempotencyRecord, ev domain.RewardEvent, art *domain.Artifact, vote *domain.VoteRecord) (replayed bool, cached string, err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return false, "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT OR IGNORE INTO idempotency (user_id, key, response, created_at)
		 VALUES (?, ?, ?, ?)`,
		rec.UserID, rec.Key, rec.Response, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return false, "", fmt.Errorf("reserve idempotency: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, "", err
	}
	if n == 0 {
		// Lost the race: hand back the first writer's response untouched.
		var original string
		err := tx.QueryRow(
			`SELECT response FROM idempotency WHERE user_id = ? AND key = ?`,
			rec.UserID, rec.Key,
		).Scan(&original)
		if err != nil {
			return false, "", fmt.Errorf("read cached response: %w", err)
		}
		return true, original, nil
	}

	if err := saveStatsTx(tx, stats, rec.CreatedAt); err != nil {
		return false, "", err
	}
	if err := insertEventTx(tx, ev); err != nil {
		return false, "", err
	}
	if art != nil {
		if err := upsertArtifactTx(tx, *art); err != nil {
			return false, "", err
		}
	}
	if vote != nil {
		if err := applyVoteTx(tx, *vote); err != nil {
			return false, "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, "", fmt.Errorf("commit action: %w", err)
	}
	return false, "", nil
}

// GetIdempotency returns the cached response for (user, key), or "" when
// the key has never been committed.
func (d *DB) GetIdempotency(userID, key string) (string, error) {
	var response string
	err := d.db.QueryRow(
		`SELECT response FROM idempotency WHERE user_id = ? AND key = ?`,
		userID, key,
	).Scan(&response)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return response, err
}

// ─── Internal helpers ───────────────────────────────────────────────────────

func saveStatsTx(tx *sql.Tx, stats domain.UserStats, now time.Time) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO user_stats (user_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		stats.UserID, string(payload), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

func insertEventTx(tx *sql.Tx, ev domain.RewardEvent) error {
	_, err := tx.Exec(
		`INSERT INTO reward_events
			(id, user_id, action, delta, level_before, level_after, cap_applied, badges, features, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, string(ev.Action), ev.Delta,
		ev.LevelBefore, ev.LevelAfter, ev.CapApplied,
		strings.Join(ev.Badges, ","), strings.Join(ev.Features, ","),
		ev.Status, ev.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert reward event: %w", err)
	}
	return nil
}

func decodeStats(payload string) (*domain.UserStats, error) {
	var stats domain.UserStats
	if err := json.Unmarshal([]byte(payload), &stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	if stats.Counts == nil {
		stats.Counts = make(map[string]int64)
	}
	if stats.Badges == nil {
		stats.Badges = make(map[string]bool)
	}
	if stats.Features == nil {
		stats.Features = make(map[string]bool)
	}
	return &stats, nil
}
