package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/memeforge-network/memeforge/internal/domain"
)

// ─── Reward Event Audit Log ─────────────────────────────────────────────────

// InsertRewardEvent appends one audit row outside an action transaction
// (admin adjustments use this path).
func (d *DB) InsertRewardEvent(ev domain.RewardEvent) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insertEventTx(tx, ev); err != nil {
		return err
	}
	return tx.Commit()
}

// CountActions counts a user's events of one action type since the cutoff.
// Quest metrics read weekly generate/publish/vote counts from here.
func (d *DB) CountActions(userID string, action domain.ActionType, since time.Time) (int64, error) {
	var n int64
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM reward_events
		 WHERE user_id = ? AND action = ? AND created_at >= ?`,
		userID, string(action), since.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s events: %w", action, err)
	}
	return n, nil
}

// RecentEvents returns a user's most recent audit rows, newest first.
func (d *DB) RecentEvents(userID string, limit int) ([]domain.RewardEvent, error) {
	rows, err := d.db.Query(
		`SELECT id, user_id, action, delta, level_before, level_after, cap_applied, badges, features, status, created_at
		 FROM reward_events WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.RewardEvent
	for rows.Next() {
		var ev domain.RewardEvent
		var action, badges, features string
		var createdAt int64
		err := rows.Scan(&ev.ID, &ev.UserID, &action, &ev.Delta,
			&ev.LevelBefore, &ev.LevelAfter, &ev.CapApplied,
			&badges, &features, &ev.Status, &createdAt)
		if err != nil {
			return nil, err
		}
		ev.Action = domain.ActionType(action)
		ev.Badges = splitList(badges)
		ev.Features = splitList(features)
		ev.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SumDeltaSince totals credited deltas for a user since the cutoff.
func (d *DB) SumDeltaSince(userID string, since time.Time) (int64, error) {
	var sum sql.NullInt64
	err := d.db.QueryRow(
		`SELECT SUM(delta) FROM reward_events WHERE user_id = ? AND created_at >= ?`,
		userID, since.Unix(),
	).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
