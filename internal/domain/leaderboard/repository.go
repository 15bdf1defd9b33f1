package leaderboard

import "context"

// Repository aggregates per-user metrics.
// A nil scope aggregates over all users; a non-nil scope, even an empty one,
// restricts the result to those ids.
type Repository interface {
	AggregateStudyMinutes(ctx context.Context, scope []string) (map[string]int64, error)
	AggregateBadgeCounts(ctx context.Context, scope []string) (map[string]int64, error)
}

// ProfileLookup resolves display profiles. Ids without a profile are absent
// from the result.
type ProfileLookup interface {
	FetchDisplayProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error)
}
