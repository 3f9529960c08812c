// Package quest implements the weekly quest engine: declarative week
// configuration, requirement-path evaluation, and slot-limited claiming.
package quest

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/memeforge-network/memeforge/internal/app/boost"
	"github.com/memeforge-network/memeforge/internal/domain"
)

var weekIDPattern = regexp.MustCompile(`^\d{4}-W\d{2}$`)

// LoadConfig parses and validates a quest week config from a TOML file.
// Validation is eager: a malformed config fails at startup, never at
// request time. A missing file yields the default config.
func LoadConfig(path string) (domain.QuestWeekConfig, error) {
	if path == "" {
		return DefaultWeekConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultWeekConfig(), nil
	}

	var cfg domain.QuestWeekConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse quest config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultWeekConfig returns a three-tier week with auto week resolution.
func DefaultWeekConfig() domain.QuestWeekConfig {
	return domain.QuestWeekConfig{
		Week:          "auto",
		Timezone:      "UTC",
		WeeklyUserCap: 300,
		Ace:           domain.AceConfig{MinVoters: 5, MinAvgRating: 4.0},
		Tiers: []domain.TierConfig{
			{
				Tier: 1, MinLevel: 1, Slots: 100, Reward: 10,
				Paths: []domain.Path{
					{Name: "creator", Requirements: []domain.Requirement{
						{Metric: domain.MetricGenerated, Op: domain.OpGTE, Target: 3},
					}},
					{Name: "curator", Requirements: []domain.Requirement{
						{Metric: domain.MetricVotesCast, Op: domain.OpGTE, Target: 10},
					}},
				},
			},
			{
				Tier: 2, MinLevel: 2, Slots: 25, Reward: 40,
				Paths: []domain.Path{
					{Name: "publisher", Requirements: []domain.Requirement{
						{Metric: domain.MetricPublished, Op: domain.OpGTE, Target: 3},
						{Metric: domain.MetricHiddenCount, Op: domain.OpEQ, Target: 0},
					}},
				},
			},
			{
				Tier: 3, MinLevel: 3, Slots: 5, Reward: 100,
				Paths: []domain.Path{
					{Name: "ace", Requirements: []domain.Requirement{
						{Metric: domain.MetricAceCount, Op: domain.OpGTE, Target: 1},
						{Metric: domain.MetricSafetyFlags, Op: domain.OpEQ, Target: 0},
					}},
					{Name: "mvp", Requirements: []domain.Requirement{
						{Metric: domain.MetricBoostEligible, Op: domain.OpEQ, Target: 1},
						{Metric: domain.MetricBestAvgRating, Op: domain.OpGTE, Target: 4.5},
					}},
				},
			},
		},
		VotingBoost: boost.DefaultVotingConfig(),
	}
}

// Validate schema-checks a week config. Errors wrap domain.ErrConfigInvalid.
func Validate(cfg domain.QuestWeekConfig) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrConfigInvalid, fmt.Sprintf(format, args...))
	}

	if cfg.Week != "auto" && !weekIDPattern.MatchString(cfg.Week) {
		return fail("week must be %q or YYYY-Www, got %q", "auto", cfg.Week)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fail("unknown timezone %q", cfg.Timezone)
	}
	if cfg.WeeklyUserCap < 0 {
		return fail("weekly_user_cap must be >= 0")
	}
	if len(cfg.Tiers) == 0 {
		return fail("at least one tier is required")
	}

	seen := make(map[int]bool)
	for _, t := range cfg.Tiers {
		if t.Tier <= 0 {
			return fail("tier numbers must be positive, got %d", t.Tier)
		}
		if seen[t.Tier] {
			return fail("duplicate tier %d", t.Tier)
		}
		seen[t.Tier] = true
		if t.Slots <= 0 {
			return fail("tier %d: slots must be positive", t.Tier)
		}
		if t.Reward <= 0 {
			return fail("tier %d: reward must be positive", t.Tier)
		}
		if t.MinLevel < 0 {
			return fail("tier %d: min_level must be >= 0", t.Tier)
		}
		if len(t.Paths) == 0 {
			return fail("tier %d: at least one path is required", t.Tier)
		}
		for _, p := range t.Paths {
			if len(p.Requirements) == 0 {
				return fail("tier %d path %q: at least one requirement", t.Tier, p.Name)
			}
			for _, r := range p.Requirements {
				if err := validateRequirement(t.Tier, p.Name, r); err != nil {
					return err
				}
			}
		}
	}

	return validateBoost(cfg.VotingBoost)
}

func validateRequirement(tier int, path string, r domain.Requirement) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: tier %d path %q: %s", domain.ErrConfigInvalid, tier, path, fmt.Sprintf(format, args...))
	}

	switch r.Metric {
	case domain.MetricGenerated, domain.MetricPublished, domain.MetricVotesCast,
		domain.MetricVotesReceived, domain.MetricBestAvgRating,
		domain.MetricBestRatingCount, domain.MetricAceCount,
		domain.MetricHiddenCount, domain.MetricReportCount,
		domain.MetricSafetyFlags, domain.MetricLevel, domain.MetricStreak,
		domain.MetricBoostEligible, domain.MetricHashtagsUsed:
	default:
		return fail("unknown metric %q", r.Metric)
	}

	switch r.Op {
	case domain.OpGTE, domain.OpLTE, domain.OpGT, domain.OpLT, domain.OpEQ:
		if r.Metric == domain.MetricHashtagsUsed {
			return fail("metric %q requires op %q", r.Metric, domain.OpIncludesAny)
		}
	case domain.OpIncludesAny:
		if r.Metric != domain.MetricHashtagsUsed {
			return fail("op %q only applies to metric %q", domain.OpIncludesAny, domain.MetricHashtagsUsed)
		}
		if len(r.Values) == 0 {
			return fail("op %q requires values", domain.OpIncludesAny)
		}
	default:
		return fail("unknown op %q", r.Op)
	}
	return nil
}

func validateBoost(b domain.BoostConfig) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: voting_boost: %s", domain.ErrConfigInvalid, fmt.Sprintf(format, args...))
	}
	if b.WeeklyPool < 0 || b.PerUserWeeklyCap < 0 {
		return fail("pool and per-user cap must be >= 0")
	}
	if b.PerMemeVoterCap < 0 || b.PerMemeMaxScore < 0 {
		return fail("per-meme caps must be >= 0")
	}
	for _, band := range b.RatingBands {
		if band.Multiplier < 0 {
			return fail("rating band multipliers must be >= 0")
		}
	}
	for _, band := range b.VelocityBands {
		if band.Multiplier < 0 {
			return fail("velocity band multipliers must be >= 0")
		}
	}
	return nil
}
