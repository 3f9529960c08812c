package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/memeforge-network/memeforge/internal/domain"
)

// ─── Quest Tier State ───────────────────────────────────────────────────────

// SeedTierStates initializes slot pools for a week. INSERT OR IGNORE makes
// first-touch initialization conflict-safe: concurrent seeders cannot
// double-seed a (week, tier) row.
func (d *DB) SeedTierStates(week string, tiers []domain.TierConfig) error {
	for _, t := range tiers {
		_, err := d.db.Exec(
			`INSERT OR IGNORE INTO quest_tiers (week, tier, slots_remaining) VALUES (?, ?, ?)`,
			week, t.Tier, t.Slots,
		)
		if err != nil {
			return fmt.Errorf("seed tier %d: %w", t.Tier, err)
		}
	}
	return nil
}

// TierStates returns slots remaining per tier for a week.
func (d *DB) TierStates(week string) (map[int]int, error) {
	rows, err := d.db.Query(
		`SELECT tier, slots_remaining FROM quest_tiers WHERE week = ?`, week,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[int]int)
	for rows.Next() {
		var tier, slots int
		if err := rows.Scan(&tier, &slots); err != nil {
			return nil, err
		}
		states[tier] = slots
	}
	return states, rows.Err()
}

// ─── Quest Claims ───────────────────────────────────────────────────────────

// GetClaim returns the claim for (user, week, tier), or nil.
func (d *DB) GetClaim(userID, week string, tier int) (*domain.QuestClaim, error) {
	row := d.db.QueryRow(
		`SELECT user_id, week, tier, reward, boost, claimed_at
		 FROM quest_claims WHERE user_id = ? AND week = ? AND tier = ?`,
		userID, week, tier,
	)
	return scanClaim(row)
}

// ListClaims returns all of a user's claims for a week.
func (d *DB) ListClaims(userID, week string) ([]domain.QuestClaim, error) {
	rows, err := d.db.Query(
		`SELECT user_id, week, tier, reward, boost, claimed_at
		 FROM quest_claims WHERE user_id = ? AND week = ? ORDER BY tier`,
		userID, week,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.QuestClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// SumClaimed returns the total reward+boost a user has claimed this week.
func (d *DB) SumClaimed(userID, week string) (int64, error) {
	var sum sql.NullInt64
	err := d.db.QueryRow(
		`SELECT SUM(reward + boost) FROM quest_claims WHERE user_id = ? AND week = ?`,
		userID, week,
	).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

// SumWeekBoost returns the total boost granted across all users this week.
func (d *DB) SumWeekBoost(week string) (int64, error) {
	var sum sql.NullInt64
	err := d.db.QueryRow(
		`SELECT SUM(boost) FROM quest_claims WHERE week = ?`, week,
	).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

// ClaimTier performs the one atomic conditional claim operation. In a single
// transaction it:
//   - rejects a duplicate (user, week, tier) claim,
//   - re-checks the per-user weekly cap against committed claims,
//   - clamps the boost to the remaining week pool,
//   - decrements slots_remaining only if still positive,
//   - inserts the claim row, credits the stats payload, and writes the
//     audit event.
//
// Under N concurrent claimants for K slots exactly min(N, K) commits; the
// rest get domain.ErrPoolEmpty. slots_remaining never goes negative because
// the decrement is conditioned on slots_remaining > 0 inside the same
// statement the storage layer executes.
func (d *DB) ClaimTier(claim domain.QuestClaim, weeklyCap, boostPool int64, stats domain.UserStats, ev domain.RewardEvent, levelFor func(int64) int) (domain.QuestClaim, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return claim, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Duplicate check first: a second attempt must see ErrAlreadyClaimed
	// even after the pool drains.
	var exists int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM quest_claims WHERE user_id = ? AND week = ? AND tier = ?`,
		claim.UserID, claim.Week, claim.Tier,
	).Scan(&exists)
	if err != nil {
		return claim, err
	}
	if exists > 0 {
		return claim, domain.ErrAlreadyClaimed
	}

	// Re-check the weekly user cap against claims committed meanwhile.
	var claimed sql.NullInt64
	err = tx.QueryRow(
		`SELECT SUM(reward + boost) FROM quest_claims WHERE user_id = ? AND week = ?`,
		claim.UserID, claim.Week,
	).Scan(&claimed)
	if err != nil {
		return claim, err
	}
	if weeklyCap > 0 && claimed.Int64+claim.Reward+claim.Boost > weeklyCap {
		// Trim the boost before rejecting outright.
		room := weeklyCap - claimed.Int64 - claim.Reward
		if room < 0 {
			return claim, domain.ErrWeeklyCapExceeded
		}
		if claim.Boost > room {
			claim.Boost = room
		}
	}

	// Clamp the boost to what is left of the shared weekly pool so the sum
	// of granted boosts can never exceed it.
	var granted sql.NullInt64
	err = tx.QueryRow(
		`SELECT SUM(boost) FROM quest_claims WHERE week = ?`, claim.Week,
	).Scan(&granted)
	if err != nil {
		return claim, err
	}
	if remaining := boostPool - granted.Int64; claim.Boost > remaining {
		claim.Boost = remaining
		if claim.Boost < 0 {
			claim.Boost = 0
		}
	}

	// The contended step: conditional decrement, never negative.
	res, err := tx.Exec(
		`UPDATE quest_tiers SET slots_remaining = slots_remaining - 1
		 WHERE week = ? AND tier = ? AND slots_remaining > 0`,
		claim.Week, claim.Tier,
	)
	if err != nil {
		return claim, fmt.Errorf("decrement slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return claim, err
	}
	if n == 0 {
		return claim, domain.ErrPoolEmpty
	}

	_, err = tx.Exec(
		`INSERT INTO quest_claims (user_id, week, tier, reward, boost, claimed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		claim.UserID, claim.Week, claim.Tier, claim.Reward, claim.Boost,
		claim.ClaimedAt.Unix(),
	)
	if err != nil {
		return claim, fmt.Errorf("insert claim: %w", err)
	}

	// The engine computed the credited stats before knowing the final boost;
	// reconcile here so the payload matches what was actually granted.
	delta := claim.Reward + claim.Boost
	stats.LifetimeEarned += delta
	stats.WeeklyEarned += delta
	if levelFor != nil {
		stats.Level = levelFor(stats.LifetimeEarned)
	}
	ev.Delta = delta
	ev.LevelAfter = stats.Level

	if err := saveStatsTx(tx, stats, claim.ClaimedAt); err != nil {
		return claim, err
	}
	if err := insertEventTx(tx, ev); err != nil {
		return claim, err
	}

	if err := tx.Commit(); err != nil {
		return claim, fmt.Errorf("commit claim: %w", err)
	}
	return claim, nil
}

func scanClaim(s scanner) (*domain.QuestClaim, error) {
	var c domain.QuestClaim
	var claimedAt int64
	err := s.Scan(&c.UserID, &c.Week, &c.Tier, &c.Reward, &c.Boost, &claimedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.ClaimedAt = time.Unix(claimedAt, 0)
	return &c, nil
}
