package badge

import "github.com/memeforge-network/memeforge/internal/domain"

// ─── Badge Catalog ──────────────────────────────────────────────────────────

// Catalog returns the full badge catalog.
func Catalog() []domain.Badge {
	return []domain.Badge{
		{
			ID: "first_spark", Name: "First Spark",
			Condition: domain.BadgeCondition{Kind: domain.CondActionCount, Action: domain.ActionGenerate, Target: 1},
		},
		{
			ID: "meme_machine", Name: "Meme Machine",
			Condition: domain.BadgeCondition{Kind: domain.CondActionCount, Action: domain.ActionGenerate, Target: 50},
		},
		{
			ID: "first_release", Name: "First Release",
			Condition: domain.BadgeCondition{Kind: domain.CondActionCount, Action: domain.ActionPublish, Target: 1},
		},
		{
			ID: "prolific", Name: "Prolific",
			Condition: domain.BadgeCondition{Kind: domain.CondActionCount, Action: domain.ActionPublish, Target: 25},
		},
		{
			ID: "critic", Name: "Critic",
			Condition: domain.BadgeCondition{Kind: domain.CondActionCount, Action: domain.ActionVoteCast, Target: 100},
		},
		{
			ID: "week_streak", Name: "Week Warrior",
			Condition: domain.BadgeCondition{Kind: domain.CondStreakDays, Days: 7},
		},
		{
			ID: "month_streak", Name: "Monthly Machine",
			Condition: domain.BadgeCondition{Kind: domain.CondStreakDays, Days: 30},
		},
		{
			ID: "crowd_pleaser", Name: "Crowd Pleaser",
			Condition: domain.BadgeCondition{Kind: domain.CondVotesReceived, Target: 100},
		},
		{
			ID: "viral_hit", Name: "Viral Hit",
			Condition: domain.BadgeCondition{Kind: domain.CondVotesReceived, Target: 1000},
		},
		{
			ID: "night_owl", Name: "Night Owl",
			Condition: domain.BadgeCondition{Kind: domain.CondTimeSpent, Target: 36000}, // 10 hours
		},
		{
			ID: "trend_rider", Name: "Trend Rider",
			Condition: domain.BadgeCondition{Kind: domain.CondHashtagUsage, Hashtag: "trending", Target: 10},
		},
		{
			ID: "regular", Name: "Regular",
			Condition: domain.BadgeCondition{Kind: domain.CondMilestone, Metric: string(domain.ActionDailyLogin), Target: 100},
		},
		{
			ID: "dad_joke_certified", Name: "Dad Joke Certified",
			Condition: domain.BadgeCondition{Kind: domain.CondQuizClass, Class: "dad_humor"},
		},
		{
			ID: "quiz_ace", Name: "Quiz Ace",
			Condition: domain.BadgeCondition{Kind: domain.CondQuizScore, Score: 90},
		},
		{
			ID: "founding_member", Name: "Founding Member",
			Condition: domain.BadgeCondition{Kind: domain.CondSpecial},
		},
	}
}

// DependentUnlocks maps a badge to the bonus features granted when it
// first unlocks.
func DependentUnlocks() map[string][]string {
	return map[string][]string{
		"first_release": {"golden_frame"},
		"viral_hit":     {"viral_banner"},
		"month_streak":  {"streak_flair"},
	}
}
