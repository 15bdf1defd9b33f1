package social

import "context"

// FriendRepository reads friendship edges.
type FriendRepository interface {
	// FetchAcceptedFriendEdges returns accepted edges with userID as either endpoint.
	FetchAcceptedFriendEdges(ctx context.Context, userID string) ([]FriendEdge, error)
}
