package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/memeforge-network/memeforge/internal/app/badge"
	"github.com/memeforge-network/memeforge/internal/app/intake"
	"github.com/memeforge-network/memeforge/internal/domain"
	"github.com/memeforge-network/memeforge/internal/infra/metrics"
)

// handleSubmitAction credits one action event. Replays of the same
// idempotency key return the original result unchanged.
func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	user := actor(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "X-Actor header required", nil)
		return
	}

	var ev intake.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}
	ev.UserID = user

	result, err := s.intake.Submit(ev, s.now())
	if err != nil {
		s.rejectWithStats(w, user, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStats returns the caller's current progression snapshot.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	user := actor(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "X-Actor header required", nil)
		return
	}
	st, err := s.stats.GetOrCreate(user, s.now())
	if err != nil {
		s.rejectWithStats(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleBadges returns the badge catalog annotated with the caller's
// unlock state.
func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	user := actor(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "X-Actor header required", nil)
		return
	}
	st, err := s.stats.GetOrCreate(user, s.now())
	if err != nil {
		s.rejectWithStats(w, "", err)
		return
	}

	type badgeView struct {
		domain.Badge
		Unlocked bool `json:"unlocked"`
	}
	catalog := badge.Catalog()
	out := make([]badgeView, 0, len(catalog))
	for _, b := range catalog {
		out = append(out, badgeView{Badge: b, Unlocked: st.Badges[b.ID]})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"badges":   out,
		"features": st.Features,
	})
}

// handleQuestProgress returns the caller's standing in the active week.
func (s *Server) handleQuestProgress(w http.ResponseWriter, r *http.Request) {
	user := actor(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "X-Actor header required", nil)
		return
	}
	progress, err := s.quests.Progress(user, s.now())
	if err != nil {
		s.rejectWithStats(w, user, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleQuestClaim attempts to claim one quest tier's reward.
func (s *Server) handleQuestClaim(w http.ResponseWriter, r *http.Request) {
	user := actor(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "X-Actor header required", nil)
		return
	}

	var req struct {
		Tier int `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	claim, err := s.quests.Claim(user, req.Tier, s.now())
	if err != nil {
		status, code := errorCode(err)
		metrics.QuestClaims.WithLabelValues(code).Inc()
		s.rejectWith(w, status, code, err, user)
		return
	}
	metrics.QuestClaims.WithLabelValues("claimed").Inc()
	if claim.Boost > 0 {
		metrics.BoostGranted.Add(float64(claim.Boost))
	}
	writeJSON(w, http.StatusOK, claim)
}

// handleAdjust applies a manual stat correction.
func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var adj intake.Adjustment
	if err := json.NewDecoder(r.Body).Decode(&adj); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}
	st, err := s.intake.Adjust(adj, s.now())
	if err != nil {
		status, code := errorCode(err)
		writeError(w, status, code, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleHideArtifact toggles the moderation-hidden flag on an artifact.
func (s *Server) handleHideArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hidden := true
	if v := r.URL.Query().Get("hidden"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "hidden must be a boolean", nil)
			return
		}
		hidden = parsed
	}
	if err := s.intake.HideArtifact(id, hidden); err != nil {
		status, code := errorCode(err)
		writeError(w, status, code, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifact_id": id, "hidden": hidden})
}

// rejectWithStats maps an error to the standard envelope, attaching the
// caller's current stats on business-rule rejections.
func (s *Server) rejectWithStats(w http.ResponseWriter, user string, err error) {
	status, code := errorCode(err)
	s.rejectWith(w, status, code, err, user)
}

func (s *Server) rejectWith(w http.ResponseWriter, status int, code string, err error, user string) {
	var st *domain.UserStats
	if user != "" && status != http.StatusServiceUnavailable {
		if cur, serr := s.stats.GetOrCreate(user, s.now()); serr == nil {
			st = &cur
		}
	}
	writeError(w, status, code, err.Error(), st)
}
