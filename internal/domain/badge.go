package domain

// ─── Badge Types ────────────────────────────────────────────────────────────

// ConditionKind discriminates the tagged union of unlock conditions.
// The evaluator switches exhaustively over these variants.
type ConditionKind string

const (
	CondActionCount   ConditionKind = "action_count"
	CondStreakDays    ConditionKind = "streak_days"
	CondMilestone     ConditionKind = "milestone"
	CondTimeSpent     ConditionKind = "time_spent"
	CondVotesReceived ConditionKind = "votes_received"
	CondHashtagUsage  ConditionKind = "hashtag_usage"
	CondQuizClass     ConditionKind = "quiz_class"
	CondQuizScore     ConditionKind = "quiz_score"
	CondSpecial       ConditionKind = "special" // server-only, never client-satisfiable
)

// BadgeCondition is the tagged unlock condition. Only the fields relevant
// to Kind are populated.
type BadgeCondition struct {
	Kind    ConditionKind `json:"kind"`
	Action  ActionType    `json:"action,omitempty"`  // action_count
	Metric  string        `json:"metric,omitempty"`  // milestone: counts-map key
	Target  int64         `json:"target,omitempty"`  // count/milestone/time/votes threshold
	Days    int           `json:"days,omitempty"`    // streak_days
	Hashtag string        `json:"hashtag,omitempty"` // hashtag_usage
	Class   string        `json:"class,omitempty"`   // quiz_class
	Score   int           `json:"score,omitempty"`   // quiz_score minimum
}

// Badge is one unlockable badge definition.
type Badge struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Condition BadgeCondition `json:"condition"`
}
