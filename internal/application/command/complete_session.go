package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/domain/study"
	"github.com/studyhub/study-hub/pkg/logger"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE SESSION COMMAND
// Records a completed study session and announces it so badge checks can run.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteSessionCommand records one completed session.
type CompleteSessionCommand struct {
	UserID          string
	DurationMinutes int

	// CompletedAt defaults to now. Its calendar date in the configured
	// location becomes the session's completed date.
	CompletedAt time.Time
}

// Validate validates the command.
func (c CompleteSessionCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if c.DurationMinutes <= 0 {
		return shared.NewDomainError("study", "CompleteSession", shared.ErrValueOutOfRange, "duration must be positive")
	}
	return nil
}

// CompleteSessionHandler handles CompleteSessionCommand.
type CompleteSessionHandler struct {
	sessions study.Repository
	opts     options
}

// NewCompleteSessionHandler creates a new CompleteSessionHandler.
func NewCompleteSessionHandler(sessions study.Repository, opts ...Option) *CompleteSessionHandler {
	return &CompleteSessionHandler{sessions: sessions, opts: buildOptions(opts)}
}

// Handle stores the session and publishes shared.SessionCompletedEvent.
// A publish failure is logged; the session is already stored.
func (h *CompleteSessionHandler) Handle(ctx context.Context, cmd CompleteSessionCommand) (*study.Session, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	completedAt := cmd.CompletedAt
	if completedAt.IsZero() {
		completedAt = h.opts.now()
	}

	session, err := study.NewSession(uuid.NewString(), cmd.UserID, timeutil.DateIn(completedAt, h.opts.location), cmd.DurationMinutes)
	if err != nil {
		return nil, err
	}

	if err := h.sessions.Create(ctx, session); err != nil {
		return nil, shared.StoreError("study", "Create", err)
	}

	event := shared.NewSessionCompletedEvent(session.UserID, session.ID, session.DurationMinutes, session.CompletedDate)
	if err := h.opts.publisher.Publish(event); err != nil {
		h.opts.log.Warn("failed to publish session completed event",
			logger.UserID(session.UserID), logger.SessionID(session.ID), logger.Err(err))
	}

	return session, nil
}
