package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/studyhub/study-hub/internal/application/command"
	"github.com/studyhub/study-hub/internal/application/query"
	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]string{
			"status":  "healthy",
			"uptime":  s.Uptime().Round(time.Second).String(),
			"version": s.config.Version,
		}, nil)
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// handleGetAllBadges handles GET /api/badges.
func (s *Server) handleGetAllBadges(w http.ResponseWriter, r *http.Request) {
	defs, err := s.deps.GetAllBadges.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "GetAllBadges", err)
		return
	}
	writeJSON(w, r, http.StatusOK, defs, &ResponseMeta{TotalCount: len(defs)})
}

// handleGetUserBadges handles GET /api/users/{userID}/badges?progress=true.
func (s *Server) handleGetUserBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := s.deps.GetUserBadges.Handle(r.Context(), query.GetUserBadgesQuery{
		UserID:          r.PathValue("userID"),
		IncludeProgress: queryBool(r, "progress"),
	})
	if err != nil {
		s.writeDomainError(w, r, "GetUserBadges", err)
		return
	}
	writeJSON(w, r, http.StatusOK, badges, &ResponseMeta{TotalCount: len(badges)})
}

// handleAwardBadge handles POST /api/users/{userID}/badges/{badgeID}.
func (s *Server) handleAwardBadge(w http.ResponseWriter, r *http.Request) {
	award, err := s.deps.AwardBadge.Handle(r.Context(), command.AwardBadgeCommand{
		UserID:  r.PathValue("userID"),
		BadgeID: r.PathValue("badgeID"),
	})
	if err != nil {
		s.writeDomainError(w, r, "AwardBadge", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, award, nil)
}

// handleCheckBadges handles POST /api/users/{userID}/badges/check.
func (s *Server) handleCheckBadges(w http.ResponseWriter, r *http.Request) {
	awarded, err := s.deps.CheckBadges.Handle(r.Context(), command.CheckAndAwardBadgesCommand{
		UserID: r.PathValue("userID"),
	})
	if err != nil {
		s.writeDomainError(w, r, "CheckAndAwardBadges", err)
		return
	}
	if awarded == nil {
		awarded = []badge.UserBadge{}
	}
	writeJSON(w, r, http.StatusOK, awarded, &ResponseMeta{TotalCount: len(awarded)})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

type completeSessionRequest struct {
	DurationMinutes int        `json:"duration_minutes"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type sessionResponse struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	CompletedDate   string `json:"completed_date"`
	DurationMinutes int    `json:"duration_minutes"`
}

// handleCompleteSession handles POST /api/users/{userID}/sessions.
func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		case errors.Is(err, io.EOF):
			writeJSONError(w, r, http.StatusBadRequest, "invalid_body", "request body is required")
		default:
			writeJSONError(w, r, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		}
		return
	}

	cmd := command.CompleteSessionCommand{
		UserID:          r.PathValue("userID"),
		DurationMinutes: req.DurationMinutes,
	}
	if req.CompletedAt != nil {
		cmd.CompletedAt = *req.CompletedAt
	}

	session, err := s.deps.CompleteSession.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "CompleteSession", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, sessionResponse{
		ID:              session.ID,
		UserID:          session.UserID,
		CompletedDate:   timeutil.FormatDate(session.CompletedDate),
		DurationMinutes: session.DurationMinutes,
	}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARDS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboards handles GET /api/users/{userID}/leaderboards?limit=N.
func (s *Server) handleGetLeaderboards(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", s.config.DefaultLeaderboardLimit)
	if !ok {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "limit must be an integer")
		return
	}

	result, err := s.deps.GetLeaderboards.Handle(r.Context(), query.GetLeaderboardsQuery{
		UserID: r.PathValue("userID"),
		Limit:  limit,
	})
	if err != nil {
		s.writeDomainError(w, r, "GetLeaderboards", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result, nil)
}
