package reward

import "github.com/memeforge-network/memeforge/internal/domain"

// ─── Incentive Rules ────────────────────────────────────────────────────────
// One rule per action type. Base gains are constants except for
// vote_received and time_spent, whose gains are computed from deltas the
// intake layer has already validated against server-side records.

// Per-vote and per-minute conversion rates.
const (
	gainPerVoteReceived = 3
	gainPerActiveMinute = 1
)

// DefaultRules returns the standard incentive rule set.
func DefaultRules() map[domain.ActionType]domain.IncentiveRule {
	return map[domain.ActionType]domain.IncentiveRule{
		domain.ActionGenerate: {
			Action:     domain.ActionGenerate,
			BaseGain:   5,
			DailyCap:   50,
			Visibility: domain.VisibilityPrivate,
		},
		domain.ActionPublish: {
			Action:     domain.ActionPublish,
			BaseGain:   10,
			DailyCap:   30,
			Unlocks:    []string{"creator_profile"},
			Visibility: domain.VisibilityPublic,
		},
		domain.ActionVoteCast: {
			Action:     domain.ActionVoteCast,
			BaseGain:   2,
			DailyCap:   20,
			Visibility: domain.VisibilitySemi,
		},
		domain.ActionVoteReceived: {
			Action: domain.ActionVoteReceived,
			ComputeGain: func(ctx domain.ActionContext) int64 {
				return ctx.VoteDelta * gainPerVoteReceived
			},
			WeeklyCap:  150,
			Visibility: domain.VisibilityViral,
		},
		domain.ActionShareClick: {
			Action:     domain.ActionShareClick,
			BaseGain:   1,
			DailyCap:   10,
			MinLevel:   2,
			Visibility: domain.VisibilityViral,
		},
		domain.ActionTimeSpent: {
			Action: domain.ActionTimeSpent,
			ComputeGain: func(ctx domain.ActionContext) int64 {
				return ctx.Seconds / 60 * gainPerActiveMinute
			},
			DailyCap:   30,
			Visibility: domain.VisibilityPrivate,
		},
		domain.ActionHashtagUse: {
			Action:     domain.ActionHashtagUse,
			BaseGain:   1,
			DailyCap:   5,
			Visibility: domain.VisibilitySemi,
		},
		domain.ActionQuizComplete: {
			Action:     domain.ActionQuizComplete,
			BaseGain:   15,
			WeeklyCap:  15,
			Unlocks:    []string{"humor_profile"},
			Visibility: domain.VisibilityPrivate,
		},
		domain.ActionDailyLogin: {
			Action:     domain.ActionDailyLogin,
			BaseGain:   2,
			DailyCap:   2,
			Visibility: domain.VisibilityPrivate,
		},
	}
}

// ProofRequired reports whether an action type needs a proof payload.
func ProofRequired(a domain.ActionType) bool {
	switch a {
	case domain.ActionVoteReceived, domain.ActionShareClick:
		return true
	}
	return false
}
