package command

import (
	"context"
	"errors"

	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD BADGE COMMAND
// Manual award path. An existing award is reported as badge.ErrAlreadyEarned.
// ══════════════════════════════════════════════════════════════════════════════

// AwardBadgeCommand awards one badge to one user.
type AwardBadgeCommand struct {
	UserID  string
	BadgeID string
}

// Validate validates the command.
func (c AwardBadgeCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if c.BadgeID == "" {
		return shared.NewDomainError("badge", "Award", shared.ErrInvalidID, "badge id is required")
	}
	return nil
}

// AwardBadgeHandler handles AwardBadgeCommand.
type AwardBadgeHandler struct {
	badges badge.Repository
	opts   options
}

// NewAwardBadgeHandler creates a new AwardBadgeHandler.
func NewAwardBadgeHandler(badges badge.Repository, opts ...Option) *AwardBadgeHandler {
	return &AwardBadgeHandler{badges: badges, opts: buildOptions(opts)}
}

// Handle awards the badge, failing with badge.ErrAlreadyEarned if the user
// already holds it and badge.ErrBadgeNotFound if it has no definition.
func (h *AwardBadgeHandler) Handle(ctx context.Context, cmd AwardBadgeCommand) (*badge.UserBadge, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.badges.GetDefinition(ctx, cmd.BadgeID); err != nil {
		if shared.IsNotFound(err) {
			return nil, badge.ErrBadgeNotFound
		}
		return nil, shared.StoreError("badge", "GetDefinition", err)
	}

	earned, err := h.badges.FetchEarned(ctx, cmd.UserID)
	if err != nil {
		return nil, shared.StoreError("badge", "FetchEarned", err)
	}
	for _, ub := range earned {
		if ub.BadgeID == cmd.BadgeID {
			h.opts.recorder.AwardConflict(cmd.BadgeID)
			return nil, badge.ErrAlreadyEarned
		}
	}

	return h.insert(ctx, cmd.UserID, cmd.BadgeID)
}

// insert creates the award record. A concurrent award of the same pair
// surfaces as badge.ErrAlreadyEarned.
func (h *AwardBadgeHandler) insert(ctx context.Context, userID, badgeID string) (*badge.UserBadge, error) {
	record, outcome, err := h.badges.InsertEarned(ctx, userID, badgeID, h.opts.now().UTC())
	if err != nil {
		h.opts.recorder.AwardFailed(badgeID)
		return nil, shared.StoreError("badge", "InsertEarned", err)
	}

	switch outcome {
	case badge.OutcomeAlreadyExists:
		h.opts.recorder.AwardConflict(badgeID)
		return nil, badge.ErrAlreadyEarned
	case badge.OutcomeAwarded:
	default:
		h.opts.recorder.AwardFailed(badgeID)
		return nil, shared.StoreError("badge", "InsertEarned", errors.New("unknown award outcome"))
	}

	h.opts.recorder.BadgeAwarded(badgeID)
	h.opts.log.Info("badge awarded", logger.UserID(userID), logger.BadgeID(badgeID))

	if err := h.opts.publisher.Publish(shared.NewBadgeAwardedEvent(userID, badgeID, record.EarnedAt)); err != nil {
		h.opts.log.Warn("failed to publish badge awarded event",
			logger.UserID(userID), logger.BadgeID(badgeID), logger.Err(err))
	}

	return record, nil
}
