// Package boost implements the pro-rata voting boost calculator. Authors
// earn a share of a fixed weekly bonus pool proportional to their
// engagement score across eligible artifacts. Pure math; storage reads
// happen in the quest engine.
package boost

import (
	"math"
	"time"

	"github.com/memeforge-network/memeforge/internal/domain"
)

// DefaultVotingConfig returns the standard voting boost parameters.
func DefaultVotingConfig() domain.BoostConfig {
	return domain.BoostConfig{
		MinUniqueVoters:  3,
		MinAvgRating:     3.0,
		RequirePublished: true,
		PerMemeVoterCap:  50,
		PerMemeMaxScore:  200,
		WeeklyPool:       500,
		PerUserWeeklyCap: 100,
		RatingBands: []domain.MultiplierBand{
			{Min: 0, Multiplier: 0.5},
			{Min: 3.0, Multiplier: 1.0},
			{Min: 4.0, Multiplier: 1.5},
			{Min: 4.5, Multiplier: 2.0},
		},
		VelocityBands: []domain.MultiplierBand{
			{Min: 0, Multiplier: 1.0},
			{Min: 10, Multiplier: 1.25},
			{Min: 25, Multiplier: 1.5},
		},
	}
}

// ArtifactScore computes one artifact's contribution:
//
//	min(ratingCount, perMemeVoterCap) × ratingMultiplier(avg) × velocityMultiplier(count/ageDays)
//
// capped at the configured per-artifact maximum. Hidden artifacts and ones
// below the unique-voter or rating floors score zero.
func ArtifactScore(a domain.Artifact, now time.Time, cfg domain.BoostConfig) float64 {
	if a.Hidden {
		return 0
	}
	if cfg.RequirePublished && !a.Published {
		return 0
	}
	if a.UniqueVoters < int64(cfg.MinUniqueVoters) {
		return 0
	}
	avg := a.AvgRating()
	if avg < cfg.MinAvgRating {
		return 0
	}

	voters := float64(a.RatingCount)
	if cfg.PerMemeVoterCap > 0 && voters > float64(cfg.PerMemeVoterCap) {
		voters = float64(cfg.PerMemeVoterCap)
	}

	velocity := float64(a.RatingCount) / a.AgeDays(now)
	score := voters * StepMultiplier(cfg.RatingBands, avg) * StepMultiplier(cfg.VelocityBands, velocity)

	if cfg.PerMemeMaxScore > 0 && score > cfg.PerMemeMaxScore {
		score = cfg.PerMemeMaxScore
	}
	return score
}

// AuthorScore aggregates an author's artifacts. The author is eligible
// only when their combined unique voters and weighted average rating meet
// the thresholds; ineligible authors contribute zero to their own score
// and to the distribution pool.
func AuthorScore(artifacts []domain.Artifact, now time.Time, cfg domain.BoostConfig) (score float64, eligible bool) {
	var totalVoters, totalSum, totalCount int64
	for _, a := range artifacts {
		if a.Hidden {
			continue
		}
		if cfg.RequirePublished && !a.Published {
			continue
		}
		totalVoters += a.UniqueVoters
		totalSum += a.RatingSum
		totalCount += a.RatingCount
		score += ArtifactScore(a, now, cfg)
	}

	if totalVoters < int64(cfg.MinUniqueVoters) || totalCount == 0 {
		return 0, false
	}
	if float64(totalSum)/float64(totalCount) < cfg.MinAvgRating {
		return 0, false
	}
	return score, true
}

// Bonus converts an author's score share into currency:
//
//	floor(userScore / totalEligible × pool), capped by remainingUserCap.
//
// Zero when the eligible total is non-positive or the user's score is zero.
func Bonus(userScore, totalEligible float64, pool, remainingUserCap int64) int64 {
	if totalEligible <= 0 || userScore <= 0 || pool <= 0 {
		return 0
	}
	bonus := int64(math.Floor(userScore / totalEligible * float64(pool)))
	if bonus > pool {
		bonus = pool
	}
	if remainingUserCap >= 0 && bonus > remainingUserCap {
		bonus = remainingUserCap
	}
	if bonus < 0 {
		return 0
	}
	return bonus
}

// StepMultiplier picks the band with the highest floor <= value.
// Empty band tables multiply by 1.
func StepMultiplier(bands []domain.MultiplierBand, value float64) float64 {
	mult := 1.0
	best := math.Inf(-1)
	for _, b := range bands {
		if b.Min <= value && b.Min > best {
			best = b.Min
			mult = b.Multiplier
		}
	}
	return mult
}
