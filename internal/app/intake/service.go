// Package intake is the action event front door: it authenticates the
// actor, validates action-specific proof, consults the idempotency ledger,
// runs the incentive rule engine, and persists the outcome atomically.
package intake

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memeforge-network/memeforge/internal/app/reward"
	"github.com/memeforge-network/memeforge/internal/app/stats"
	"github.com/memeforge-network/memeforge/internal/domain"
	"github.com/memeforge-network/memeforge/internal/infra/metrics"
	"github.com/memeforge-network/memeforge/internal/infra/sqlite"
	"github.com/memeforge-network/memeforge/internal/security"
)

// Event is one submitted action event, pre-authentication fields included.
type Event struct {
	UserID         string             `json:"-"` // from upstream auth
	Action         domain.ActionType  `json:"action"`
	SubjectID      string             `json:"subject_id,omitempty"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
	VoteID         string             `json:"vote_id,omitempty"`
	ShareToken     string             `json:"share_token,omitempty"`
	Rating         int                `json:"rating,omitempty"`
	Seconds        int64              `json:"seconds,omitempty"`
	Hashtags       []string           `json:"hashtags,omitempty"`
	QuizClass      string             `json:"quiz_class,omitempty"`
	QuizScore      int                `json:"quiz_score,omitempty"`
}

// Service processes action events end to end.
type Service struct {
	db     *sqlite.DB
	engine *reward.Engine
	store  *stats.Store
	keys   *security.Keypair
}

// NewService wires the intake pipeline.
func NewService(db *sqlite.DB, engine *reward.Engine, store *stats.Store, keys *security.Keypair) *Service {
	return &Service{db: db, engine: engine, store: store, keys: keys}
}

// Submit validates and credits one action event. Replaying the same
// (user, idempotency key) returns the original result verbatim with zero
// additional side effects.
func (s *Service) Submit(ev Event, now time.Time) (domain.ActionResult, error) {
	if ev.UserID == "" {
		return domain.ActionResult{}, domain.ErrUnauthenticated
	}
	if !domain.KnownAction(ev.Action) {
		return domain.ActionResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownAction, ev.Action)
	}
	key := s.resolveKey(ev)

	// Fast replay path before any validation work.
	if cached, err := s.db.GetIdempotency(ev.UserID, key); err != nil {
		return domain.ActionResult{}, fmt.Errorf("idempotency lookup: %w", err)
	} else if cached != "" {
		return decodeResult(cached)
	}

	ctx, artifact, vote, err := s.validate(ev, key, now)
	if err != nil {
		return domain.ActionResult{}, err
	}

	// The load, the rule-engine transform, and the commit form one
	// read-modify-write span; serialize it per user so a concurrent submit
	// cannot overwrite this one's committed credits.
	unlock := s.store.Lock(ev.UserID)
	defer unlock()

	prev, err := s.store.GetOrCreate(ev.UserID, now)
	if err != nil {
		return domain.ActionResult{}, err
	}

	next, result, err := s.engine.Apply(prev, ev.Action, ctx, now)
	if err != nil {
		return domain.ActionResult{}, err
	}

	response, err := json.Marshal(result)
	if err != nil {
		return domain.ActionResult{}, fmt.Errorf("encode result: %w", err)
	}

	status := domain.EventCredited
	if rule, ok := s.engine.Rule(ev.Action); ok && rule.MinLevel > 0 && prev.Level < rule.MinLevel {
		status = domain.EventGated
	} else if result.Delta == 0 && result.CapApplied {
		status = domain.EventCapped
	}

	replayed, cached, err := s.db.CommitAction(
		next,
		domain.IdempotencyRecord{UserID: ev.UserID, Key: key, Response: string(response), CreatedAt: now},
		domain.RewardEvent{
			ID:          uuid.NewString(),
			UserID:      ev.UserID,
			Action:      ev.Action,
			Delta:       result.Delta,
			LevelBefore: prev.Level,
			LevelAfter:  next.Level,
			CapApplied:  result.CapApplied,
			Badges:      result.NewBadges,
			Features:    result.NewFeatures,
			Status:      status,
			CreatedAt:   now,
		},
		artifact,
		vote,
	)
	if err != nil {
		return domain.ActionResult{}, err
	}
	if replayed {
		return decodeResult(cached)
	}

	metrics.ActionsCredited.WithLabelValues(string(ev.Action)).Inc()
	metrics.CreditsGranted.Add(float64(result.Delta))
	if result.CapApplied {
		metrics.CapClamped.WithLabelValues(string(ev.Action)).Inc()
	}
	metrics.BadgeUnlocks.Add(float64(len(result.NewBadges)))
	return result, nil
}

// resolveKey picks the idempotency key: the caller's when present,
// otherwise a deterministic key for proof-bound actions so the same vote
// or share can never credit twice, otherwise a fresh server key.
func (s *Service) resolveKey(ev Event) string {
	if ev.IdempotencyKey != "" {
		return ev.IdempotencyKey
	}
	switch ev.Action {
	case domain.ActionVoteReceived:
		return "vote_received:" + ev.VoteID
	case domain.ActionShareClick:
		return "share_click:" + ev.ShareToken
	}
	return uuid.NewString()
}

func decodeResult(cached string) (domain.ActionResult, error) {
	var result domain.ActionResult
	if err := json.Unmarshal([]byte(cached), &result); err != nil {
		return result, fmt.Errorf("decode cached result: %w", err)
	}
	return result, nil
}

// ─── Proof Validation ───────────────────────────────────────────────────────

const maxSessionSeconds = 86400

// validate enforces the action-specific proof contract and builds the
// validated context the rule engine may trust. It also prepares the
// artifact or vote record committed alongside the credit.
func (s *Service) validate(ev Event, key string, now time.Time) (domain.ActionContext, *domain.Artifact, *domain.VoteRecord, error) {
	ctx := domain.ActionContext{SubjectID: ev.SubjectID}

	switch ev.Action {
	case domain.ActionVoteReceived:
		if ev.VoteID == "" {
			return ctx, nil, nil, fmt.Errorf("%w: vote_received needs a vote id", domain.ErrMissingProof)
		}
		vote, err := s.db.GetVote(ev.VoteID)
		if err != nil {
			return ctx, nil, nil, err
		}
		if vote == nil {
			return ctx, nil, nil, fmt.Errorf("%w: no such vote record", domain.ErrInvalidProof)
		}
		if vote.AuthorID != ev.UserID {
			return ctx, nil, nil, fmt.Errorf("%w: vote was not cast on this user's meme", domain.ErrInvalidProof)
		}
		ctx.VoteDelta = 1 // one credit per server-side vote record

	case domain.ActionShareClick:
		if ev.ShareToken == "" || ev.SubjectID == "" {
			return ctx, nil, nil, fmt.Errorf("%w: share_click needs a subject and token", domain.ErrMissingProof)
		}
		if err := s.keys.VerifyShareToken(ev.ShareToken, ev.UserID, ev.SubjectID, now); err != nil {
			return ctx, nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidProof, err)
		}

	case domain.ActionVoteCast:
		return s.validateVoteCast(ev, key, now)

	case domain.ActionGenerate:
		if ev.SubjectID != "" {
			return ctx, &domain.Artifact{
				ID:        ev.SubjectID,
				AuthorID:  ev.UserID,
				CreatedAt: now,
			}, nil, nil
		}

	case domain.ActionPublish:
		if ev.SubjectID == "" {
			return ctx, nil, nil, fmt.Errorf("%w: publish needs a subject id", domain.ErrMissingProof)
		}
		art, err := s.db.GetArtifact(ev.SubjectID)
		if err != nil {
			return ctx, nil, nil, err
		}
		if art == nil {
			art = &domain.Artifact{ID: ev.SubjectID, AuthorID: ev.UserID, CreatedAt: now}
		}
		if art.AuthorID != ev.UserID {
			return ctx, nil, nil, fmt.Errorf("%w: cannot publish someone else's meme", domain.ErrInvalidProof)
		}
		art.Published = true
		return ctx, art, nil, nil

	case domain.ActionTimeSpent:
		if ev.Seconds <= 0 || ev.Seconds > maxSessionSeconds {
			return ctx, nil, nil, fmt.Errorf("%w: seconds out of range", domain.ErrInvalidProof)
		}
		ctx.Seconds = ev.Seconds

	case domain.ActionHashtagUse:
		tags := normalizeTags(ev.Hashtags)
		if len(tags) == 0 {
			return ctx, nil, nil, fmt.Errorf("%w: hashtag_use needs at least one tag", domain.ErrMissingProof)
		}
		ctx.Hashtags = tags

	case domain.ActionQuizComplete:
		if ev.QuizScore < 0 || ev.QuizScore > 100 {
			return ctx, nil, nil, fmt.Errorf("%w: quiz score out of range", domain.ErrInvalidProof)
		}
		ctx.QuizClass = ev.QuizClass
		ctx.QuizScore = ev.QuizScore
	}

	return ctx, nil, nil, nil
}

// validateVoteCast checks the vote proof and builds the server-side vote
// record. The record is inserted and folded into the target artifact's
// aggregates inside the commit transaction with relative updates, so
// concurrent votes from different users never lose each other's ratings.
func (s *Service) validateVoteCast(ev Event, key string, now time.Time) (domain.ActionContext, *domain.Artifact, *domain.VoteRecord, error) {
	ctx := domain.ActionContext{SubjectID: ev.SubjectID}
	if ev.SubjectID == "" {
		return ctx, nil, nil, fmt.Errorf("%w: vote_cast needs a subject id", domain.ErrMissingProof)
	}
	if ev.Rating < 1 || ev.Rating > 5 {
		return ctx, nil, nil, fmt.Errorf("%w: rating must be 1-5", domain.ErrInvalidProof)
	}

	art, err := s.db.GetArtifact(ev.SubjectID)
	if err != nil {
		return ctx, nil, nil, err
	}
	if art == nil {
		return ctx, nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidProof, domain.ErrArtifactNotFound)
	}
	if art.AuthorID == ev.UserID {
		return ctx, nil, nil, fmt.Errorf("%w: cannot vote on your own meme", domain.ErrInvalidProof)
	}

	// Deterministic vote id keyed to the idempotency key: a replayed
	// request re-inserts the same row, which INSERT OR IGNORE drops.
	return ctx, nil, &domain.VoteRecord{
		ID:         "v-" + key,
		ArtifactID: art.ID,
		VoterID:    ev.UserID,
		AuthorID:   art.AuthorID,
		Rating:     ev.Rating,
		CreatedAt:  now,
	}, nil
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t != "" {
			out = append(out, t)
		}
		if len(out) == 5 {
			break
		}
	}
	return out
}
