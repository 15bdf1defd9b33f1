package command

import (
	"context"
	"errors"

	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/domain/study"
	"github.com/studyhub/study-hub/pkg/logger"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK AND AWARD BADGES COMMAND
// Automatic sweep. Concurrent sweeps for the same user may race on a badge;
// losing that race is not an error.
// ══════════════════════════════════════════════════════════════════════════════

// CheckAndAwardBadgesCommand sweeps one user's unearned badges.
type CheckAndAwardBadgesCommand struct {
	UserID string
}

// Validate validates the command.
func (c CheckAndAwardBadgesCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// CheckAndAwardBadgesHandler handles CheckAndAwardBadgesCommand.
type CheckAndAwardBadgesHandler struct {
	sessions study.Repository
	badges   badge.Repository
	award    *AwardBadgeHandler
	opts     options
}

// NewCheckAndAwardBadgesHandler creates a new CheckAndAwardBadgesHandler.
func NewCheckAndAwardBadgesHandler(sessions study.Repository, badges badge.Repository, opts ...Option) *CheckAndAwardBadgesHandler {
	return &CheckAndAwardBadgesHandler{
		sessions: sessions,
		badges:   badges,
		award:    NewAwardBadgeHandler(badges, opts...),
		opts:     buildOptions(opts),
	}
}

// Handle awards every unearned badge whose progress has reached 100 and
// returns the awards created by this call only.
//
// Sessions, definitions and existing awards are each read once. A failure to
// award a single badge is logged and the sweep continues; a failure of any of
// the initial reads aborts it.
func (h *CheckAndAwardBadgesHandler) Handle(ctx context.Context, cmd CheckAndAwardBadgesCommand) ([]badge.UserBadge, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	log := h.opts.log.With(logger.Component("badge_sweep"), logger.UserID(cmd.UserID))

	sessions, err := h.sessions.FetchUserSessions(ctx, cmd.UserID, nil)
	if err != nil {
		return nil, shared.StoreError("study", "FetchUserSessions", err)
	}

	defs, err := h.badges.FetchAllDefinitions(ctx)
	if err != nil {
		return nil, shared.StoreError("badge", "FetchAllDefinitions", err)
	}

	earned, err := h.badges.FetchEarned(ctx, cmd.UserID)
	if err != nil {
		return nil, shared.StoreError("badge", "FetchEarned", err)
	}
	held := make(map[string]struct{}, len(earned))
	for _, ub := range earned {
		held[ub.BadgeID] = struct{}{}
	}

	today := timeutil.DateIn(h.opts.now(), h.opts.location)
	awarded := make([]badge.UserBadge, 0)

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return awarded, err
		}
		if _, ok := held[def.ID]; ok {
			continue
		}
		if !badge.IsEarnable(sessions, def, today) {
			continue
		}

		record, err := h.award.insert(ctx, cmd.UserID, def.ID)
		switch {
		case err == nil:
			awarded = append(awarded, *record)
			held[def.ID] = struct{}{}
		case errors.Is(err, badge.ErrAlreadyEarned):
			log.Debug("badge already awarded by a concurrent sweep", logger.BadgeID(def.ID))
		default:
			log.Error("failed to award badge", logger.BadgeID(def.ID), logger.Err(err))
		}
	}

	if len(awarded) > 0 {
		log.Info("badge sweep completed", logger.Int("awarded", len(awarded)))
	}
	return awarded, nil
}
