package postgres

import (
	"context"
	"fmt"

	"github.com/studyhub/study-hub/internal/domain/social"
)

// FriendRepository implements social.FriendRepository.
type FriendRepository struct {
	conn *Connection
}

// NewFriendRepository creates a new FriendRepository.
func NewFriendRepository(conn *Connection) *FriendRepository {
	return &FriendRepository{conn: conn}
}

var _ social.FriendRepository = (*FriendRepository)(nil)

// FetchAcceptedFriendEdges returns accepted edges touching userID in either
// direction.
func (r *FriendRepository) FetchAcceptedFriendEdges(ctx context.Context, userID string) ([]social.FriendEdge, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT from_user, to_user, status
		FROM friendships
		WHERE status = 'accepted' AND (from_user = $1 OR to_user = $1)
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	edges := make([]social.FriendEdge, 0)
	for rows.Next() {
		var (
			e      social.FriendEdge
			status string
		)
		if err := rows.Scan(&e.FromUser, &e.ToUser, &status); err != nil {
			return nil, fmt.Errorf("scan friendship: %w", err)
		}
		e.Status = social.FriendshipStatus(status)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
