// Package stats owns per-user progression state. Reads apply lazy day and
// week rollover: counters reset only when the user is next seen after a
// boundary, against the server's configured timezone: one global reset
// cadence, not per-user locale.
package stats

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/memeforge-network/memeforge/internal/domain"
	"github.com/memeforge-network/memeforge/internal/infra/sqlite"
)

// Store wraps the stats table with rollover-on-read semantics. It also owns
// the per-user write locks: every read-modify-write of a stats payload must
// run under Lock(userID) so concurrent requests for one user cannot
// overwrite each other's committed credits.
type Store struct {
	db  *sqlite.DB
	loc *time.Location

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewStore creates a stats store. loc is the rollover timezone.
func NewStore(db *sqlite.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc, users: make(map[string]*sync.Mutex)}
}

// Location returns the store's rollover timezone.
func (s *Store) Location() *time.Location { return s.loc }

// Lock serializes one user's read-modify-write span and returns the unlock.
// Hold it from the stats load through the transaction commit. Locks for
// different users are independent, so cross-user throughput is unaffected.
func (s *Store) Lock(userID string) (unlock func()) {
	s.mu.Lock()
	l, ok := s.users[userID]
	if !ok {
		l = &sync.Mutex{}
		s.users[userID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// GetOrCreate loads a user's stats, lazily creating defaults on first
// reference, and applies any pending day/week rollover before returning.
func (s *Store) GetOrCreate(userID string, now time.Time) (domain.UserStats, error) {
	stored, err := s.db.GetUserStats(userID)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("load stats for %s: %w", userID, err)
	}
	local := now.In(s.loc)
	if stored == nil {
		return domain.NewUserStats(userID, local), nil
	}
	return Rollover(*stored, local), nil
}

// Save persists stats outside an action transaction.
func (s *Store) Save(st domain.UserStats, now time.Time) error {
	return s.db.SaveUserStats(st, now)
}

// Rollover applies pending day and week resets against the given local
// time. The two rollovers are independent and may both fire on one read.
// Pure: operates on a copy.
func Rollover(st domain.UserStats, local time.Time) domain.UserStats {
	next := st.Clone()

	if day := domain.DayKey(local); day != next.DayMarker {
		for k := range next.Counts {
			if strings.HasPrefix(k, domain.DailyPrefix) {
				delete(next.Counts, k)
			}
		}
		next.DailyEarned = 0
		next.CurrentStreak = rolledStreak(next, local)
		next.DayMarker = day
	}

	if week := domain.WeekKey(local); week != next.WeekMarker {
		for k := range next.Counts {
			if strings.HasPrefix(k, domain.WeeklyPrefix) {
				delete(next.Counts, k)
			}
		}
		next.WeeklyEarned = 0
		next.WeekMarker = week
	}

	return next
}

// rolledStreak recomputes the streak at a day boundary: extend when the
// last activity was yesterday, keep when it was somehow today already,
// otherwise restart at 1 for the visit happening now.
func rolledStreak(st domain.UserStats, local time.Time) int {
	if st.LastActive.IsZero() {
		return 1
	}
	lastDay := domain.DayKey(st.LastActive.In(local.Location()))
	switch lastDay {
	case domain.DayKey(local):
		return st.CurrentStreak
	case domain.DayKey(local.AddDate(0, 0, -1)):
		return st.CurrentStreak + 1
	default:
		return 1
	}
}
