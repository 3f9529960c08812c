package intake

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memeforge-network/memeforge/internal/domain"
)

// Adjustment is one manual stat correction from the admin interface.
type Adjustment struct {
	UserID   string           `json:"user_id"`
	Delta    int64            `json:"delta"`
	Counters map[string]int64 `json:"counters,omitempty"` // e.g. weekly_reports
	Badges   []string         `json:"badges,omitempty"`   // grants special badges
	Reason   string           `json:"reason"`
}

// Adjust applies a manual correction and audit-logs it. Negative deltas
// floor the affected totals at zero and the level is recomputed so the
// level-follows-lifetime invariant keeps holding.
func (s *Service) Adjust(adj Adjustment, now time.Time) (domain.UserStats, error) {
	if adj.UserID == "" {
		return domain.UserStats{}, domain.ErrUnauthenticated
	}
	if adj.Reason == "" {
		return domain.UserStats{}, fmt.Errorf("adjustment requires a reason")
	}

	unlock := s.store.Lock(adj.UserID)
	defer unlock()

	st, err := s.store.GetOrCreate(adj.UserID, now)
	if err != nil {
		return domain.UserStats{}, err
	}
	before := st.Level

	caps := s.engine.GlobalCaps()
	st.LifetimeEarned = floorZero(st.LifetimeEarned + adj.Delta)
	st.DailyEarned = clampWindow(st.DailyEarned+adj.Delta, caps.GlobalDailyCap)
	st.WeeklyEarned = clampWindow(st.WeeklyEarned+adj.Delta, caps.GlobalWeeklyCap)
	for key, delta := range adj.Counters {
		st.Counts[key] = floorZero(st.Counts[key] + delta)
	}
	for _, id := range adj.Badges {
		st.Badges[id] = true
	}
	st.Level = s.engine.Curve().LevelFor(st.LifetimeEarned)

	if err := s.store.Save(st, now); err != nil {
		return domain.UserStats{}, err
	}

	err = s.db.InsertRewardEvent(domain.RewardEvent{
		ID:          uuid.NewString(),
		UserID:      adj.UserID,
		Action:      domain.ActionAdjustment,
		Delta:       adj.Delta,
		LevelBefore: before,
		LevelAfter:  st.Level,
		Badges:      adj.Badges,
		Status:      domain.EventAdjusted,
		CreatedAt:   now,
	})
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("audit adjustment: %w", err)
	}
	return st, nil
}

// HideArtifact marks a meme hidden for moderation; hidden artifacts stop
// contributing to quest metrics and boost scoring.
func (s *Service) HideArtifact(artifactID string, hidden bool) error {
	art, err := s.db.GetArtifact(artifactID)
	if err != nil {
		return err
	}
	if art == nil {
		return domain.ErrArtifactNotFound
	}
	art.Hidden = hidden
	return s.db.UpsertArtifact(*art)
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// clampWindow keeps a window total inside [0, cap] so manual corrections
// cannot break the global cap invariants.
func clampWindow(v, limit int64) int64 {
	v = floorZero(v)
	if limit > 0 && v > limit {
		return limit
	}
	return v
}
