package study

import (
	"context"
	"time"
)

// Repository is the session store used by the engine.
type Repository interface {
	// Create stores a completed session.
	Create(ctx context.Context, s *Session) error

	// FetchUserSessions returns the user's completed sessions.
	// When since is non-nil only sessions completed on or after that date are returned.
	FetchUserSessions(ctx context.Context, userID string, since *time.Time) ([]Session, error)

	// ListActiveUsers returns ids of users with a session completed on or after since.
	ListActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}
