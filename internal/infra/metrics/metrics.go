// Package metrics provides Prometheus metrics for the reward engine:
// credited actions, cap clamps, badge unlocks, and quest claims.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Actions ────────────────────────────────────────────────────────────────

// ActionsCredited counts processed action events by type.
var ActionsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "memeforge",
	Name:      "actions_credited_total",
	Help:      "Total action events processed by action type.",
}, []string{"action"})

// CreditsGranted totals currency credited through the rule engine.
var CreditsGranted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "memeforge",
	Name:      "credits_granted_total",
	Help:      "Total currency credited to users.",
})

// CapClamped counts gains reduced by a window cap.
var CapClamped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "memeforge",
	Name:      "cap_clamped_total",
	Help:      "Gains clamped by a per-rule or global cap.",
}, []string{"action"})

// ─── Unlocks ────────────────────────────────────────────────────────────────

// BadgeUnlocks counts badges unlocked.
var BadgeUnlocks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "memeforge",
	Name:      "badge_unlocks_total",
	Help:      "Total badges unlocked across all users.",
})

// ─── Quests ─────────────────────────────────────────────────────────────────

// QuestClaims counts claim attempts by outcome (success, pool_empty, ...).
var QuestClaims = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "memeforge",
	Name:      "quest_claims_total",
	Help:      "Quest tier claim attempts by outcome.",
}, []string{"outcome"})

// BoostGranted totals voting-boost currency distributed.
var BoostGranted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "memeforge",
	Name:      "boost_granted_total",
	Help:      "Total voting-boost bonus distributed.",
})
