// Package social models friendships between users.
// Friendships are stored as directed edges but are logically undirected:
// an accepted edge makes both endpoints friends of each other.
package social

import (
	"sort"
)

// FriendshipStatus is the state of a friend request edge.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// IsValid reports whether s is a known status.
func (s FriendshipStatus) IsValid() bool {
	switch s {
	case FriendshipPending, FriendshipAccepted, FriendshipRejected:
		return true
	}
	return false
}

// FriendEdge is one stored friendship record, from requester to addressee.
type FriendEdge struct {
	FromUser string           `json:"from_user"`
	ToUser   string           `json:"to_user"`
	Status   FriendshipStatus `json:"status"`
}

// Other returns the endpoint of e that is not userID, and false when userID
// is not an endpoint.
func (e FriendEdge) Other(userID string) (string, bool) {
	switch userID {
	case e.FromUser:
		return e.ToUser, true
	case e.ToUser:
		return e.FromUser, true
	}
	return "", false
}

// ResolveFriends returns the deduplicated ids of userID's accepted friends,
// sorted ascending. Edges not touching userID, non-accepted edges and
// self-loops are ignored.
func ResolveFriends(userID string, edges []FriendEdge) []string {
	set := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if e.Status != FriendshipAccepted {
			continue
		}
		other, ok := e.Other(userID)
		if !ok || other == "" || other == userID {
			continue
		}
		set[other] = struct{}{}
	}

	friends := make([]string, 0, len(set))
	for id := range set {
		friends = append(friends, id)
	}
	sort.Strings(friends)
	return friends
}

// WithSelf returns ids plus userID, without duplicates.
func WithSelf(userID string, ids []string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, userID)
	for _, id := range ids {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}
