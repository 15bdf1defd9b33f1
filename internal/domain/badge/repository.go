package badge

import (
	"context"
	"time"
)

// Repository is the badge store used by the engine.
type Repository interface {
	// FetchAllDefinitions returns every badge definition.
	FetchAllDefinitions(ctx context.Context) ([]Definition, error)

	// GetDefinition returns one definition or ErrBadgeNotFound.
	GetDefinition(ctx context.Context, badgeID string) (*Definition, error)

	// FetchEarned returns the user's award records ordered by EarnedAt.
	FetchEarned(ctx context.Context, userID string) ([]UserBadge, error)

	// InsertEarned creates the award record for the pair. When a record
	// already exists it returns OutcomeAlreadyExists and a nil record,
	// never an error.
	InsertEarned(ctx context.Context, userID, badgeID string, earnedAt time.Time) (*UserBadge, AwardOutcome, error)
}
