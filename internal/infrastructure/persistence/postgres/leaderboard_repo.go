package postgres

import (
	"context"
	"fmt"

	"github.com/studyhub/study-hub/internal/domain/leaderboard"
)

// LeaderboardRepository implements leaderboard.Repository and
// leaderboard.ProfileLookup.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

var (
	_ leaderboard.Repository    = (*LeaderboardRepository)(nil)
	_ leaderboard.ProfileLookup = (*LeaderboardRepository)(nil)
)

// A NULL $1 means no scope; pgx encodes a nil slice as NULL and an empty
// slice as an empty array.
const (
	aggregateStudyMinutesSQL = `
		SELECT user_id, COALESCE(SUM(duration_minutes), 0)::bigint
		FROM study_sessions
		WHERE $1::text[] IS NULL OR user_id = ANY($1::text[])
		GROUP BY user_id
	`
	aggregateBadgeCountsSQL = `
		SELECT user_id, COUNT(*)::bigint
		FROM user_badges
		WHERE $1::text[] IS NULL OR user_id = ANY($1::text[])
		GROUP BY user_id
	`
)

// AggregateStudyMinutes sums session minutes per user.
func (r *LeaderboardRepository) AggregateStudyMinutes(ctx context.Context, scope []string) (map[string]int64, error) {
	return r.aggregate(ctx, aggregateStudyMinutesSQL, scope)
}

// AggregateBadgeCounts counts awards per user.
func (r *LeaderboardRepository) AggregateBadgeCounts(ctx context.Context, scope []string) (map[string]int64, error) {
	return r.aggregate(ctx, aggregateBadgeCountsSQL, scope)
}

func (r *LeaderboardRepository) aggregate(ctx context.Context, sql string, scope []string) (map[string]int64, error) {
	rows, err := r.conn.Query(ctx, sql, scope)
	if err != nil {
		return nil, fmt.Errorf("query aggregate: %w", err)
	}
	defer rows.Close()

	values := make(map[string]int64)
	for rows.Next() {
		var (
			userID string
			value  int64
		)
		if err := rows.Scan(&userID, &value); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		values[userID] = value
	}
	return values, rows.Err()
}

// FetchDisplayProfiles returns name and bio for the given users.
func (r *LeaderboardRepository) FetchDisplayProfiles(ctx context.Context, userIDs []string) (map[string]leaderboard.Profile, error) {
	profiles := make(map[string]leaderboard.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	rows, err := r.conn.Query(ctx, `SELECT id, name, bio FROM users WHERE id = ANY($1::text[])`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			p  leaderboard.Profile
		)
		if err := rows.Scan(&id, &p.Name, &p.Bio); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles[id] = p
	}
	return profiles, rows.Err()
}
