// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/study-hub/internal/application/command"
	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SESSION COMPLETED HANDLER
// Runs the badge sweep for the user who just completed a session.
// Two sessions completed close together trigger two concurrent sweeps; the
// sweep tolerates that.
// ═══════════════════════════════════════════════════════════════════════════

// BadgeSweeper runs the automatic award sweep for one user.
type BadgeSweeper interface {
	Handle(ctx context.Context, cmd command.CheckAndAwardBadgesCommand) ([]badge.UserBadge, error)
}

// OnSessionCompletedHandler handles shared.SessionCompletedEvent.
type OnSessionCompletedHandler struct {
	sweeper BadgeSweeper
	timeout time.Duration
	log     *logger.Logger
}

// NewOnSessionCompletedHandler creates a new handler. A non-positive timeout
// defaults to 30 seconds.
func NewOnSessionCompletedHandler(sweeper BadgeSweeper, timeout time.Duration, log *logger.Logger) *OnSessionCompletedHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OnSessionCompletedHandler{
		sweeper: sweeper,
		timeout: timeout,
		log:     log.With(logger.Component("on_session_completed")),
	}
}

// Handle processes the event. Its signature matches shared.EventHandler.
func (h *OnSessionCompletedHandler) Handle(event shared.Event) error {
	e, ok := asSessionCompleted(event)
	if !ok {
		return fmt.Errorf("on_session_completed: unexpected event type %T", event)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	awarded, err := h.sweeper.Handle(ctx, command.CheckAndAwardBadgesCommand{UserID: e.UserID})
	if err != nil {
		return fmt.Errorf("on_session_completed: sweep user %s: %w", e.UserID, err)
	}

	for _, ub := range awarded {
		h.log.Info("badge earned after session",
			logger.UserID(e.UserID), logger.SessionID(e.SessionID), logger.BadgeID(ub.BadgeID))
	}
	return nil
}

func asSessionCompleted(event shared.Event) (shared.SessionCompletedEvent, bool) {
	switch e := event.(type) {
	case shared.SessionCompletedEvent:
		return e, true
	case *shared.SessionCompletedEvent:
		if e != nil {
			return *e, true
		}
	}
	return shared.SessionCompletedEvent{}, false
}
