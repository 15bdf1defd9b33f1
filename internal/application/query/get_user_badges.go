package query

import (
	"context"
	"time"

	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/domain/study"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER BADGES QUERY
// Earned badges first, oldest award first. With IncludeProgress the unearned
// badges follow, annotated with the user's current progress.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserBadgesQuery selects one user's badges.
type GetUserBadgesQuery struct {
	UserID          string
	IncludeProgress bool
}

// Validate validates the query.
func (q GetUserBadgesQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// GetUserBadgesHandler handles GetUserBadgesQuery.
type GetUserBadgesHandler struct {
	sessions study.Repository
	badges   badge.Repository
	now      func() time.Time
	location *time.Location
}

// NewGetUserBadgesHandler creates a new GetUserBadgesHandler.
func NewGetUserBadgesHandler(sessions study.Repository, badges badge.Repository, loc *time.Location) *GetUserBadgesHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &GetUserBadgesHandler{sessions: sessions, badges: badges, now: time.Now, location: loc}
}

// Handle returns the user's badges.
func (h *GetUserBadgesHandler) Handle(ctx context.Context, q GetUserBadgesQuery) ([]badge.BadgeWithProgress, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	defs, err := h.badges.FetchAllDefinitions(ctx)
	if err != nil {
		return nil, shared.StoreError("badge", "FetchAllDefinitions", err)
	}
	earned, err := h.badges.FetchEarned(ctx, q.UserID)
	if err != nil {
		return nil, shared.StoreError("badge", "FetchEarned", err)
	}

	byID := make(map[string]badge.Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	result := make([]badge.BadgeWithProgress, 0, len(defs))
	held := make(map[string]struct{}, len(earned))
	for _, ub := range earned {
		if _, dup := held[ub.BadgeID]; dup {
			continue
		}
		held[ub.BadgeID] = struct{}{}

		def, ok := byID[ub.BadgeID]
		if !ok {
			def = badge.Definition{ID: ub.BadgeID}
		}
		earnedAt := ub.EarnedAt
		result = append(result, badge.BadgeWithProgress{
			Definition: def,
			Earned:     true,
			EarnedAt:   &earnedAt,
			Progress:   badge.Complete,
		})
	}

	if !q.IncludeProgress {
		return result, nil
	}

	sessions, err := h.sessions.FetchUserSessions(ctx, q.UserID, nil)
	if err != nil {
		return nil, shared.StoreError("study", "FetchUserSessions", err)
	}
	today := timeutil.DateIn(h.now(), h.location)

	for _, def := range defs {
		if _, ok := held[def.ID]; ok {
			continue
		}
		result = append(result, badge.BadgeWithProgress{
			Definition: def,
			Progress:   badge.Progress(sessions, def, today),
		})
	}
	return result, nil
}
