package domain

import "time"

// ─── Quest Week Configuration ───────────────────────────────────────────────
// Declarative, schema-validated at load time, immutable thereafter.

// Comparator is a requirement comparison operator.
type Comparator string

const (
	OpGTE         Comparator = ">="
	OpLTE         Comparator = "<="
	OpGT          Comparator = ">"
	OpLT          Comparator = "<"
	OpEQ          Comparator = "="
	OpIncludesAny Comparator = "includes_any"
)

// MetricType names one value of the weekly metrics bundle.
type MetricType string

const (
	MetricGenerated       MetricType = "generated"
	MetricPublished       MetricType = "published"
	MetricVotesCast       MetricType = "votes_cast"
	MetricVotesReceived   MetricType = "votes_received"
	MetricBestAvgRating   MetricType = "best_avg_rating"
	MetricBestRatingCount MetricType = "best_rating_count"
	MetricAceCount        MetricType = "ace_count"
	MetricHiddenCount     MetricType = "hidden_count"
	MetricReportCount     MetricType = "report_count"
	MetricSafetyFlags     MetricType = "safety_flags"
	MetricLevel           MetricType = "level"
	MetricStreak          MetricType = "streak"
	MetricBoostEligible   MetricType = "boost_eligible"
	MetricHashtagsUsed    MetricType = "hashtags_used" // includes_any only
)

// Requirement is one metric comparison. A path is a conjunction of these.
type Requirement struct {
	Metric MetricType `toml:"metric" json:"metric"`
	Op     Comparator `toml:"op" json:"op"`
	Target float64    `toml:"target" json:"target"`
	Values []string   `toml:"values" json:"values,omitempty"` // includes_any operands
}

// Path is one alternative way to satisfy a tier.
type Path struct {
	Name         string        `toml:"name" json:"name"`
	Requirements []Requirement `toml:"requirements" json:"requirements"`
}

// TierConfig defines one slot-limited reward tier.
type TierConfig struct {
	Tier     int    `toml:"tier" json:"tier"`
	MinLevel int    `toml:"min_level" json:"min_level"`
	Slots    int    `toml:"slots" json:"slots"`
	Reward   int64  `toml:"reward" json:"reward"`
	Paths    []Path `toml:"paths" json:"paths"`
}

// MultiplierBand maps a metric floor to a multiplier. Bands are evaluated
// highest floor first; the first band whose Min <= value applies.
type MultiplierBand struct {
	Min        float64 `toml:"min" json:"min"`
	Multiplier float64 `toml:"multiplier" json:"multiplier"`
}

// BoostConfig parameterizes the pro-rata voting boost distribution.
type BoostConfig struct {
	MinUniqueVoters  int              `toml:"min_unique_voters" json:"min_unique_voters"`
	MinAvgRating     float64          `toml:"min_avg_rating" json:"min_avg_rating"`
	RequirePublished bool             `toml:"require_published" json:"require_published"`
	PerMemeVoterCap  int              `toml:"per_meme_voter_cap" json:"per_meme_voter_cap"`
	PerMemeMaxScore  float64          `toml:"per_meme_max_score" json:"per_meme_max_score"`
	WeeklyPool       int64            `toml:"weekly_pool" json:"weekly_pool"`
	PerUserWeeklyCap int64            `toml:"per_user_weekly_cap" json:"per_user_weekly_cap"`
	RatingBands      []MultiplierBand `toml:"rating_bands" json:"rating_bands"`
	VelocityBands    []MultiplierBand `toml:"velocity_bands" json:"velocity_bands"`
}

// AceConfig sets the thresholds an artifact must meet to count as an "ace".
type AceConfig struct {
	MinVoters    int     `toml:"min_voters" json:"min_voters"`
	MinAvgRating float64 `toml:"min_avg_rating" json:"min_avg_rating"`
}

// QuestWeekConfig is the full declarative weekly quest program.
type QuestWeekConfig struct {
	Week          string       `toml:"week" json:"week"` // "auto" or fixed "2026-W35"
	Timezone      string       `toml:"timezone" json:"timezone"`
	WeeklyUserCap int64        `toml:"weekly_user_cap" json:"weekly_user_cap"`
	Ace           AceConfig    `toml:"ace" json:"ace"`
	Tiers         []TierConfig `toml:"tiers" json:"tiers"`
	VotingBoost   BoostConfig  `toml:"voting_boost" json:"voting_boost"`
}

// ─── Quest Runtime State ────────────────────────────────────────────────────

// TierStatus is the per-(user, tier) quest state machine.
type TierStatus string

const (
	TierLocked     TierStatus = "LOCKED"
	TierInProgress TierStatus = "IN_PROGRESS"
	TierEligible   TierStatus = "ELIGIBLE"
	TierClaimed    TierStatus = "CLAIMED"
	TierPoolEmpty  TierStatus = "POOL_EMPTY"
)

// TierState is the shared per-(week, tier) slot pool row.
// slots_remaining is seeded once per week and only ever decremented.
type TierState struct {
	Week           string `json:"week"`
	Tier           int    `json:"tier"`
	SlotsRemaining int    `json:"slots_remaining"`
}

// QuestClaim records one successful tier claim. Immutable once created.
type QuestClaim struct {
	UserID    string    `json:"user_id"`
	Week      string    `json:"week"`
	Tier      int       `json:"tier"`
	Reward    int64     `json:"reward"`
	Boost     int64     `json:"boost"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// WeekMetrics is the per-user metrics bundle quest requirements evaluate
// against. Computed over the active week window.
type WeekMetrics struct {
	Generated       int64    `json:"generated"`
	Published       int64    `json:"published"`
	VotesCast       int64    `json:"votes_cast"`
	VotesReceived   int64    `json:"votes_received"`
	BestAvgRating   float64  `json:"best_avg_rating"`
	BestRatingCount int64    `json:"best_rating_count"`
	AceCount        int64    `json:"ace_count"`
	HiddenCount     int64    `json:"hidden_count"`
	ReportCount     int64    `json:"report_count"`
	SafetyFlags     int64    `json:"safety_flags"`
	Level           int      `json:"level"`
	Streak          int      `json:"streak"`
	BoostEligible   bool     `json:"boost_eligible"`
	BoostScore      float64  `json:"boost_score"`
	HashtagsUsed    []string `json:"hashtags_used,omitempty"`
}

// RequirementProgress reports one requirement's current value vs target.
type RequirementProgress struct {
	Requirement Requirement `json:"requirement"`
	Current     float64     `json:"current"`
	Met         bool        `json:"met"`
}

// PathProgress reports one path's evaluation.
type PathProgress struct {
	Name         string                `json:"name"`
	Requirements []RequirementProgress `json:"requirements"`
	Satisfied    bool                  `json:"satisfied"`
}

// TierProgress is the full per-tier view returned by the progress call.
type TierProgress struct {
	Tier           int            `json:"tier"`
	MinLevel       int            `json:"min_level"`
	Reward         int64          `json:"reward"`
	SlotsRemaining int            `json:"slots_remaining"`
	Status         TierStatus     `json:"status"`
	Paths          []PathProgress `json:"paths"`
	Claim          *QuestClaim    `json:"claim,omitempty"`
}

// WeekProgress is the progress response for one user and week.
type WeekProgress struct {
	Week    string         `json:"week"`
	Metrics WeekMetrics    `json:"metrics"`
	Tiers   []TierProgress `json:"tiers"`
}
