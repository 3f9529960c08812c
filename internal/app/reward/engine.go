// Package reward implements the incentive rule engine: the rule-driven
// conversion of validated action events into currency under per-rule,
// global-daily, and global-weekly caps, with level recomputation and
// badge evaluation folded into one pure transform.
package reward

import (
	"fmt"
	"time"

	"github.com/memeforge-network/memeforge/internal/app/badge"
	"github.com/memeforge-network/memeforge/internal/domain"
)

// Economy holds the global cap configuration.
type Economy struct {
	GlobalDailyCap  int64
	GlobalWeeklyCap int64
}

// DefaultEconomy returns the standard global caps.
func DefaultEconomy() Economy {
	return Economy{GlobalDailyCap: 200, GlobalWeeklyCap: 1000}
}

// Engine applies incentive rules to user stats.
type Engine struct {
	rules   map[domain.ActionType]domain.IncentiveRule
	curve   LevelCurve
	economy Economy
	badges  *badge.Evaluator
}

// NewEngine builds an engine from its parts.
func NewEngine(rules map[domain.ActionType]domain.IncentiveRule, curve LevelCurve, economy Economy, badges *badge.Evaluator) *Engine {
	return &Engine{rules: rules, curve: curve, economy: economy, badges: badges}
}

// Curve exposes the engine's level curve.
func (e *Engine) Curve() LevelCurve { return e.curve }

// GlobalCaps exposes the global cap configuration.
func (e *Engine) GlobalCaps() Economy { return e.economy }

// Rule returns the rule for an action type.
func (e *Engine) Rule(a domain.ActionType) (domain.IncentiveRule, bool) {
	r, ok := e.rules[a]
	return r, ok
}

// Apply is the pure transform (prevStats, event) -> (nextStats, result).
// The single now value is threaded through the whole transform; wall clock
// is never read here. prev is not mutated, so a failed persist leaves the
// caller's snapshot intact.
func (e *Engine) Apply(prev domain.UserStats, action domain.ActionType, ctx domain.ActionContext, now time.Time) (domain.UserStats, domain.ActionResult, error) {
	rule, ok := e.rules[action]
	if !ok {
		return prev, domain.ActionResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownAction, action)
	}

	result := domain.ActionResult{
		Action:     action,
		Level:      prev.Level,
		Visibility: rule.Visibility,
	}

	// Level gate: the action is accepted but yields nothing. Explicitly not
	// an error, and stats stay untouched.
	if rule.MinLevel > 0 && prev.Level < rule.MinLevel {
		return prev, result, nil
	}

	base := rule.BaseGain
	if rule.ComputeGain != nil {
		base = rule.ComputeGain(ctx)
	}
	if base < 0 {
		base = 0
	}

	next := prev.Clone()
	dayKey := domain.DailyPrefix + string(action)
	weekKey := domain.WeeklyPrefix + string(action)

	allowed, clamped := Allowed(CapInput{
		Proposed:        base,
		RuleDailyCap:    rule.DailyCap,
		RuleWeeklyCap:   rule.WeeklyCap,
		RuleDayEarned:   next.Counts[dayKey],
		RuleWeekEarned:  next.Counts[weekKey],
		GlobalDailyCap:  e.economy.GlobalDailyCap,
		GlobalWeeklyCap: e.economy.GlobalWeeklyCap,
		DayEarned:       next.DailyEarned,
		WeekEarned:      next.WeeklyEarned,
	})

	next.Counts[string(action)]++
	next.Counts[dayKey] += allowed
	next.Counts[weekKey] += allowed
	next.LifetimeEarned += allowed
	next.DailyEarned += allowed
	next.WeeklyEarned += allowed

	e.applyContext(&next, action, ctx)

	next.Level = e.curve.LevelFor(next.LifetimeEarned)
	next.LastActive = now

	newBadges, newFeatures := e.badges.Evaluate(next)
	for _, id := range newBadges {
		next.Badges[id] = true
	}
	for _, id := range newFeatures {
		next.Features[id] = true
	}

	// Rule-level unlocks are unconditional on the first qualifying action.
	for _, id := range rule.Unlocks {
		if !next.Features[id] {
			next.Features[id] = true
			newFeatures = append(newFeatures, id)
		}
	}

	result.Delta = allowed
	result.Level = next.Level
	result.CapApplied = clamped
	result.NewBadges = newBadges
	result.NewFeatures = newFeatures
	return next, result, nil
}

// applyContext folds validated action context into the stat counters.
func (e *Engine) applyContext(s *domain.UserStats, action domain.ActionType, ctx domain.ActionContext) {
	switch action {
	case domain.ActionVoteReceived:
		s.VotesReceived += ctx.VoteDelta
	case domain.ActionTimeSpent:
		s.TimeSpentSec += ctx.Seconds
	case domain.ActionHashtagUse:
		for _, tag := range ctx.Hashtags {
			s.Counts["tag_"+tag]++                // lifetime, badge conditions
			s.Counts[domain.TagPrefix+tag]++      // weekly, quest includes_any
		}
	case domain.ActionQuizComplete:
		if ctx.QuizClass != "" {
			s.QuizClass = ctx.QuizClass
		}
		if ctx.QuizScore > s.QuizBestScore {
			s.QuizBestScore = ctx.QuizScore
		}
	}
}
