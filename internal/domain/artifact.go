package domain

import "time"

// ─── Artifact & Vote Aggregates ─────────────────────────────────────────────
// The reward engine does not own meme content, only the numeric aggregates
// the proof validator and the voting boost calculator read.

// Artifact is the per-meme engagement aggregate.
type Artifact struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	CreatedAt    time.Time `json:"created_at"`
	Published    bool      `json:"published"`
	Hidden       bool      `json:"hidden"`
	RatingSum    int64     `json:"rating_sum"`
	RatingCount  int64     `json:"rating_count"`
	UniqueVoters int64     `json:"unique_voters"`
}

// AvgRating returns the mean rating, 0 when unrated.
func (a Artifact) AvgRating() float64 {
	if a.RatingCount == 0 {
		return 0
	}
	return float64(a.RatingSum) / float64(a.RatingCount)
}

// AgeDays returns the artifact age in fractional days, floored at one day
// so velocity never divides by a near-zero age.
func (a Artifact) AgeDays(now time.Time) float64 {
	days := now.Sub(a.CreatedAt).Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}

// VoteRecord is one server-side rating event. vote_received proofs must
// reference a record whose artifact belongs to the credited user.
type VoteRecord struct {
	ID         string    `json:"id"`
	ArtifactID string    `json:"artifact_id"`
	VoterID    string    `json:"voter_id"`
	AuthorID   string    `json:"author_id"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}
