// Package domain defines the core types of the MemeForge reward engine:
// user stats, incentive rules, badges, quests, and sentinel errors.
// Domain types are pure values, no storage or transport dependencies.
package domain

import "time"

// ─── Action Types ───────────────────────────────────────────────────────────

// ActionType is the closed enumeration of creditable user actions.
type ActionType string

const (
	ActionGenerate     ActionType = "generate"      // composed a new meme
	ActionPublish      ActionType = "publish"       // published a meme to the feed
	ActionVoteCast     ActionType = "vote_cast"     // rated someone else's meme
	ActionVoteReceived ActionType = "vote_received" // own meme received a rating
	ActionShareClick   ActionType = "share_click"   // share link was opened
	ActionTimeSpent    ActionType = "time_spent"    // active session time
	ActionHashtagUse   ActionType = "hashtag_use"   // tagged a meme with hashtags
	ActionQuizComplete ActionType = "quiz_complete" // finished a humor-profile quiz
	ActionDailyLogin   ActionType = "login"         // first visit of the day
)

// Audit-only labels. Not part of the closed client action set; they mark
// server-side credit paths in the reward_events log.
const (
	ActionQuestClaim ActionType = "quest_claim"
	ActionAdjustment ActionType = "admin_adjust"
)

// KnownAction reports whether the action type is part of the closed set.
func KnownAction(a ActionType) bool {
	switch a {
	case ActionGenerate, ActionPublish, ActionVoteCast, ActionVoteReceived,
		ActionShareClick, ActionTimeSpent, ActionHashtagUse,
		ActionQuizComplete, ActionDailyLogin:
		return true
	}
	return false
}

// ─── Visibility ─────────────────────────────────────────────────────────────

// VisibilityTier labels how prominently an action's output is surfaced.
type VisibilityTier string

const (
	VisibilityPrivate VisibilityTier = "private"
	VisibilitySemi    VisibilityTier = "semi"
	VisibilityPublic  VisibilityTier = "public"
	VisibilityViral   VisibilityTier = "viral"
)

// ─── Action Context & Results ───────────────────────────────────────────────

// ActionContext carries the validated, action-specific inputs for gain
// computation. Deltas here are validated upstream by the intake layer and
// must never come verbatim from an untrusted caller.
type ActionContext struct {
	SubjectID string   `json:"subject_id,omitempty"` // artifact or vote record id
	VoteDelta int64    `json:"vote_delta,omitempty"` // validated new-vote count
	Seconds   int64    `json:"seconds,omitempty"`    // validated active seconds
	Hashtags  []string `json:"hashtags,omitempty"`
	QuizClass string   `json:"quiz_class,omitempty"`
	QuizScore int      `json:"quiz_score,omitempty"`
}

// IncentiveRule maps an action type to its reward semantics.
// Either BaseGain or ComputeGain is set; ComputeGain wins when non-nil.
type IncentiveRule struct {
	Action      ActionType
	BaseGain    int64
	ComputeGain func(ActionContext) int64
	DailyCap    int64 // 0 = unbounded
	WeeklyCap   int64 // 0 = unbounded
	MinLevel    int   // 0 = no gate
	Unlocks     []string
	Visibility  VisibilityTier
}

// ActionResult is the outcome of crediting one action event.
type ActionResult struct {
	Action      ActionType     `json:"action"`
	Delta       int64          `json:"delta"`
	Level       int            `json:"level"`
	CapApplied  bool           `json:"cap_applied"`
	NewBadges   []string       `json:"new_badges,omitempty"`
	NewFeatures []string       `json:"new_features,omitempty"`
	Visibility  VisibilityTier `json:"visibility"`
}

// ─── Idempotency ────────────────────────────────────────────────────────────

// IdempotencyRecord caches the response for one (user, key) pair.
// Created exactly once; first writer wins; read-only thereafter.
type IdempotencyRecord struct {
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	Response  string    `json:"response"` // JSON-serialized ActionResult
	CreatedAt time.Time `json:"created_at"`
}

// ─── Audit Log ──────────────────────────────────────────────────────────────

// RewardEvent is one append-only audit row per processed action.
type RewardEvent struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Action      ActionType `json:"action"`
	Delta       int64      `json:"delta"`
	LevelBefore int        `json:"level_before"`
	LevelAfter  int        `json:"level_after"`
	CapApplied  bool       `json:"cap_applied"`
	Badges      []string   `json:"badges,omitempty"`
	Features    []string   `json:"features,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Reward event statuses.
const (
	EventCredited = "credited"
	EventCapped   = "capped"   // accepted, delta clamped to zero
	EventGated    = "gated"    // accepted, below rule's minimum level
	EventAdjusted = "adjusted" // manual admin correction
)
