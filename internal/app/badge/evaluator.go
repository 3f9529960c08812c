// Package badge implements the declarative badge/feature unlock evaluator.
// Conditions are a closed sum type matched exhaustively against a stats
// snapshot. Evaluation is monotonic: unlock sets never shrink.
package badge

import "github.com/memeforge-network/memeforge/internal/domain"

// Evaluator checks the badge catalog against user stats snapshots.
type Evaluator struct {
	catalog    []domain.Badge
	dependents map[string][]string // badge id -> features granted on first unlock
}

// NewEvaluator creates an evaluator with the default catalog and
// dependent-unlock table.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		catalog:    Catalog(),
		dependents: DependentUnlocks(),
	}
}

// NewEvaluatorWith creates an evaluator over a custom catalog (tests).
func NewEvaluatorWith(catalog []domain.Badge, dependents map[string][]string) *Evaluator {
	return &Evaluator{catalog: catalog, dependents: dependents}
}

// Evaluate returns badges and features newly unlocked by this snapshot.
// Already-unlocked badges are skipped, never revoked.
func (e *Evaluator) Evaluate(stats domain.UserStats) (newBadges, newFeatures []string) {
	for _, b := range e.catalog {
		if stats.Badges[b.ID] {
			continue
		}
		if !Matches(b.Condition, stats) {
			continue
		}
		newBadges = append(newBadges, b.ID)
		for _, feature := range e.dependents[b.ID] {
			if !stats.Features[feature] {
				newFeatures = append(newFeatures, feature)
			}
		}
	}
	return newBadges, newFeatures
}

// Catalog returns all badge definitions (for display).
func (e *Evaluator) Catalog() []domain.Badge {
	return e.catalog
}

// Matches evaluates one tagged condition against a snapshot. The switch is
// exhaustive over domain.ConditionKind; unknown kinds never match.
func Matches(c domain.BadgeCondition, s domain.UserStats) bool {
	switch c.Kind {
	case domain.CondActionCount:
		return s.Counts[string(c.Action)] >= c.Target
	case domain.CondStreakDays:
		return s.CurrentStreak >= c.Days
	case domain.CondMilestone:
		return s.Counts[c.Metric] >= c.Target
	case domain.CondTimeSpent:
		return s.TimeSpentSec >= c.Target
	case domain.CondVotesReceived:
		return s.VotesReceived >= c.Target
	case domain.CondHashtagUsage:
		return s.Counts["tag_"+c.Hashtag] >= c.Target
	case domain.CondQuizClass:
		return s.QuizClass == c.Class
	case domain.CondQuizScore:
		return s.QuizBestScore >= c.Score
	case domain.CondSpecial:
		// Server-only: granted by admin adjustment, never client-satisfiable.
		return false
	}
	return false
}
