package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, no infrastructure dependency. The API layer maps
// each to a machine-readable code so callers can act on them.

var (
	// Intake errors
	ErrUnauthenticated = errors.New("actor not identified")
	ErrUnknownAction   = errors.New("unknown action type")
	ErrMissingProof    = errors.New("action requires a proof payload")
	ErrInvalidProof    = errors.New("proof validation failed")
	ErrMissingKey      = errors.New("idempotency key is required")

	// Quest claim errors, each distinct and caller-actionable
	ErrTierLocked        = errors.New("tier locked: level requirement not met")
	ErrAlreadyClaimed    = errors.New("tier already claimed this week")
	ErrNotEligible       = errors.New("no requirement path satisfied")
	ErrPoolEmpty         = errors.New("tier slot pool is empty for this week")
	ErrWeeklyCapExceeded = errors.New("weekly per-user reward cap exceeded")
	ErrUnknownTier       = errors.New("tier not defined in week config")

	// Config errors
	ErrConfigInvalid = errors.New("quest week config failed validation")

	// Storage errors
	ErrArtifactNotFound = errors.New("artifact not found")
)
