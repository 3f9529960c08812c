package domain

import (
	"fmt"
	"time"
)

// Count key prefixes. Plain action keys hold lifetime occurrence counts;
// prefixed keys hold windowed earned amounts and are zeroed on rollover.
const (
	DailyPrefix  = "daily_"
	WeeklyPrefix = "weekly_"
	TagPrefix    = "weekly_tag_" // per-hashtag weekly usage, zeroed with the week
)

// UserStats is the per-user progression state. Owned exclusively by the
// stats store; mutated only through the reward engine's pure transform.
type UserStats struct {
	UserID        string           `json:"user_id"`
	Counts        map[string]int64 `json:"counts"`
	VotesReceived int64            `json:"votes_received"`
	TimeSpentSec  int64            `json:"time_spent_sec"`
	QuizClass     string           `json:"quiz_class,omitempty"`
	QuizBestScore int              `json:"quiz_best_score,omitempty"`
	CurrentStreak int              `json:"current_streak"`
	LastActive    time.Time        `json:"last_active"`

	LifetimeEarned int64 `json:"lifetime_earned"`
	DailyEarned    int64 `json:"daily_earned"`
	WeeklyEarned   int64 `json:"weekly_earned"`
	Level          int   `json:"level"`

	Badges   map[string]bool `json:"badges"`   // append-only
	Features map[string]bool `json:"features"` // append-only

	// Rollover markers, maintained by the stats store.
	DayMarker  string `json:"day_marker"`  // "2026-08-30"
	WeekMarker string `json:"week_marker"` // "2026-W35"
}

// NewUserStats returns default stats for a first-seen user.
func NewUserStats(userID string, now time.Time) UserStats {
	return UserStats{
		UserID:        userID,
		Counts:        make(map[string]int64),
		Level:         1,
		CurrentStreak: 1,
		Badges:        make(map[string]bool),
		Features:      make(map[string]bool),
		DayMarker:     DayKey(now),
		WeekMarker:    WeekKey(now),
	}
}

// Clone returns a deep copy. The reward engine transforms a clone so a
// failed persist never leaves a half-mutated snapshot behind.
func (s UserStats) Clone() UserStats {
	c := s
	c.Counts = make(map[string]int64, len(s.Counts))
	for k, v := range s.Counts {
		c.Counts[k] = v
	}
	c.Badges = make(map[string]bool, len(s.Badges))
	for k, v := range s.Badges {
		c.Badges[k] = v
	}
	c.Features = make(map[string]bool, len(s.Features))
	for k, v := range s.Features {
		c.Features[k] = v
	}
	return c
}

// BadgeList returns unlocked badge ids (order unspecified).
func (s UserStats) BadgeList() []string {
	out := make([]string, 0, len(s.Badges))
	for id := range s.Badges {
		out = append(out, id)
	}
	return out
}

// FeatureList returns unlocked feature ids (order unspecified).
func (s UserStats) FeatureList() []string {
	out := make([]string, 0, len(s.Features))
	for id := range s.Features {
		out = append(out, id)
	}
	return out
}

// DayKey formats a calendar-day rollover marker.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekKey formats an ISO week rollover marker, e.g. "2026-W35".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
