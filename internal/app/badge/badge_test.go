package badge_test

import (
	"testing"
	"time"

	"github.com/memeforge-network/memeforge/internal/app/badge"
	"github.com/memeforge-network/memeforge/internal/domain"
)

var testNow = time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)

func TestEvaluate_ActionCount(t *testing.T) {
	e := badge.NewEvaluator()
	st := domain.NewUserStats("alice", testNow)
	st.Counts["generate"] = 1

	badges, _ := e.Evaluate(st)
	if !contains(badges, "first_spark") {
		t.Errorf("expected first_spark, got %v", badges)
	}
	if contains(badges, "meme_machine") {
		t.Error("meme_machine needs 50 generates")
	}
}

func TestEvaluate_SkipsAlreadyUnlocked(t *testing.T) {
	e := badge.NewEvaluator()
	st := domain.NewUserStats("alice", testNow)
	st.Counts["generate"] = 1
	st.Badges["first_spark"] = true

	badges, _ := e.Evaluate(st)
	if contains(badges, "first_spark") {
		t.Error("already-unlocked badge reported again")
	}
}

func TestEvaluate_DependentFeatures(t *testing.T) {
	e := badge.NewEvaluator()
	st := domain.NewUserStats("alice", testNow)
	st.Counts["publish"] = 1

	badges, features := e.Evaluate(st)
	if !contains(badges, "first_release") {
		t.Fatalf("expected first_release, got %v", badges)
	}
	if !contains(features, "golden_frame") {
		t.Errorf("first_release must grant golden_frame, got %v", features)
	}
}

func TestEvaluate_SpecialNeverMatches(t *testing.T) {
	e := badge.NewEvaluator()
	st := domain.NewUserStats("alice", testNow)
	// Max out everything a client could influence.
	st.Counts["generate"] = 1000
	st.VotesReceived = 100000
	st.TimeSpentSec = 1 << 40
	st.CurrentStreak = 365

	badges, _ := e.Evaluate(st)
	if contains(badges, "founding_member") {
		t.Error("special badge unlocked without an admin grant")
	}
}

func TestMatches_Conditions(t *testing.T) {
	st := domain.NewUserStats("alice", testNow)
	st.CurrentStreak = 7
	st.VotesReceived = 99
	st.TimeSpentSec = 36000
	st.Counts["tag_trending"] = 10
	st.QuizClass = "dad_humor"
	st.QuizBestScore = 91

	cases := []struct {
		name string
		cond domain.BadgeCondition
		want bool
	}{
		{"streak met", domain.BadgeCondition{Kind: domain.CondStreakDays, Days: 7}, true},
		{"streak short", domain.BadgeCondition{Kind: domain.CondStreakDays, Days: 8}, false},
		{"votes short", domain.BadgeCondition{Kind: domain.CondVotesReceived, Target: 100}, false},
		{"time met", domain.BadgeCondition{Kind: domain.CondTimeSpent, Target: 36000}, true},
		{"hashtag met", domain.BadgeCondition{Kind: domain.CondHashtagUsage, Hashtag: "trending", Target: 10}, true},
		{"hashtag other", domain.BadgeCondition{Kind: domain.CondHashtagUsage, Hashtag: "cats", Target: 1}, false},
		{"quiz class", domain.BadgeCondition{Kind: domain.CondQuizClass, Class: "dad_humor"}, true},
		{"quiz score", domain.BadgeCondition{Kind: domain.CondQuizScore, Score: 90}, true},
		{"unknown kind", domain.BadgeCondition{Kind: domain.ConditionKind("bogus")}, false},
	}
	for _, c := range cases {
		if got := badge.Matches(c.cond, st); got != c.want {
			t.Errorf("%s: Matches = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestEvaluate_MonotonicOverGrowth(t *testing.T) {
	e := badge.NewEvaluator()
	st := domain.NewUserStats("alice", testNow)

	unlocked := map[string]bool{}
	for i := 1; i <= 60; i++ {
		st.Counts["generate"] = int64(i)
		badges, _ := e.Evaluate(st)
		for _, id := range badges {
			if unlocked[id] {
				t.Fatalf("badge %s unlocked twice", id)
			}
			unlocked[id] = true
			st.Badges[id] = true
		}
	}
	if !unlocked["first_spark"] || !unlocked["meme_machine"] {
		t.Errorf("expected both generate badges, got %v", unlocked)
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
