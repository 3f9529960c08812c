package reward

// MaxSingleGain is the sanity ceiling on any one proposed gain. Anything
// above it is treated as a corrupt input and clamped before cap math runs.
const MaxSingleGain int64 = 10000

// CapInput collects everything cap enforcement needs for one gain.
// Caps of 0 are unbounded.
type CapInput struct {
	Proposed int64

	RuleDailyCap   int64
	RuleWeeklyCap  int64
	RuleDayEarned  int64
	RuleWeekEarned int64

	GlobalDailyCap  int64
	GlobalWeeklyCap int64
	DayEarned       int64
	WeekEarned      int64
}

// Allowed clamps a proposed gain against every remaining window budget:
//
//	allowed = min(proposed, ruleDailyRemaining, ruleWeeklyRemaining,
//	              globalDailyRemaining, globalWeeklyRemaining)
//
// Each remaining budget is max(0, cap − alreadyEarned). The result is
// always >= 0. The second return reports whether any cap reduced the gain.
func Allowed(in CapInput) (int64, bool) {
	proposed := in.Proposed
	if proposed <= 0 {
		return 0, false
	}
	if proposed > MaxSingleGain {
		proposed = MaxSingleGain
	}

	allowed := proposed
	allowed = minBudget(allowed, in.RuleDailyCap, in.RuleDayEarned)
	allowed = minBudget(allowed, in.RuleWeeklyCap, in.RuleWeekEarned)
	allowed = minBudget(allowed, in.GlobalDailyCap, in.DayEarned)
	allowed = minBudget(allowed, in.GlobalWeeklyCap, in.WeekEarned)

	return allowed, allowed < in.Proposed
}

// minBudget clamps allowed against one window's remaining budget.
func minBudget(allowed, limit, earned int64) int64 {
	if limit <= 0 {
		return allowed // unbounded
	}
	remaining := limit - earned
	if remaining < 0 {
		remaining = 0
	}
	if allowed > remaining {
		return remaining
	}
	return allowed
}
