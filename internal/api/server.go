// Package api provides the HTTP server for the MemeForge reward engine.
// Action intake, quest progress/claim, stats reads, and the admin
// adjustment interface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memeforge-network/memeforge/internal/app/intake"
	"github.com/memeforge-network/memeforge/internal/app/quest"
	"github.com/memeforge-network/memeforge/internal/app/stats"
	"github.com/memeforge-network/memeforge/internal/domain"
)

// Server is the MemeForge HTTP API server.
type Server struct {
	intake         *intake.Service
	quests         *quest.Engine
	stats          *stats.Store
	version        string
	metricsEnabled bool
	adminToken     string
	now            func() time.Time
}

// NewServer creates a new API server.
func NewServer(in *intake.Service, q *quest.Engine, st *stats.Store, version string) *Server {
	return &Server{
		intake:  in,
		quests:  q,
		stats:   st,
		version: version,
		now:     time.Now,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetAdminToken guards the admin routes with a shared token.
func (s *Server) SetAdminToken(token string) { s.adminToken = token }

// SetClock overrides the request clock (tests).
func (s *Server) SetClock(now func() time.Time) { s.now = now }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/actions", s.handleSubmitAction)
		r.Get("/stats", s.handleStats)
		r.Get("/badges", s.handleBadges)
		r.Get("/quests/progress", s.handleQuestProgress)
		r.Post("/quests/claim", s.handleQuestClaim)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/adjust", s.handleAdjust)
		r.Post("/artifacts/{id}/hidden", s.handleHideArtifact)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// actor reads the authenticated user from the upstream auth contract.
func actor(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

// requireAdmin is a minimal shared-token guard for the adjustment interface.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || r.Header.Get("X-Admin-Token") != s.adminToken {
			writeError(w, http.StatusForbidden, "forbidden", "admin token required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── Response helpers ───────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the machine-readable error envelope. Business-rule
// rejections include the caller's current stats so a UI can resynchronize
// without a second round trip.
func writeError(w http.ResponseWriter, status int, code, message string, st *domain.UserStats) {
	body := map[string]any{
		"error": map[string]string{"code": code, "message": message},
	}
	if st != nil {
		body["stats"] = st
	}
	writeJSON(w, status, body)
}

// errorCode maps domain sentinels to (HTTP status, stable code).
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrUnknownAction):
		return http.StatusBadRequest, "unknown_action"
	case errors.Is(err, domain.ErrMissingProof):
		return http.StatusBadRequest, "missing_proof"
	case errors.Is(err, domain.ErrInvalidProof):
		return http.StatusBadRequest, "invalid_proof"
	case errors.Is(err, domain.ErrMissingKey):
		return http.StatusBadRequest, "missing_idempotency_key"
	case errors.Is(err, domain.ErrUnknownTier):
		return http.StatusBadRequest, "unknown_tier"
	case errors.Is(err, domain.ErrTierLocked):
		return http.StatusConflict, "tier_locked"
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return http.StatusConflict, "already_claimed"
	case errors.Is(err, domain.ErrNotEligible):
		return http.StatusConflict, "not_eligible"
	case errors.Is(err, domain.ErrPoolEmpty):
		return http.StatusConflict, "pool_empty"
	case errors.Is(err, domain.ErrWeeklyCapExceeded):
		return http.StatusConflict, "weekly_cap_exceeded"
	case errors.Is(err, domain.ErrArtifactNotFound):
		return http.StatusNotFound, "artifact_not_found"
	default:
		// Storage and other transient failures: retryable, never swallowed.
		return http.StatusServiceUnavailable, "transient"
	}
}
