package query

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/leaderboard"
	"github.com/studyhub/study-hub/internal/domain/social"
	"github.com/studyhub/study-hub/internal/domain/study"
)

type fakeBoards struct {
	minutes map[string]int64
	badges  map[string]int64

	minutesErr error
	calls      atomic.Int32
}

func scoped(values map[string]int64, scope []string) map[string]int64 {
	out := make(map[string]int64)
	if scope == nil {
		for k, v := range values {
			out[k] = v
		}
		return out
	}
	for _, id := range scope {
		if v, ok := values[id]; ok {
			out[id] = v
		}
	}
	return out
}

func (f *fakeBoards) AggregateStudyMinutes(_ context.Context, scope []string) (map[string]int64, error) {
	f.calls.Add(1)
	if f.minutesErr != nil {
		return nil, f.minutesErr
	}
	return scoped(f.minutes, scope), nil
}

func (f *fakeBoards) AggregateBadgeCounts(_ context.Context, scope []string) (map[string]int64, error) {
	f.calls.Add(1)
	return scoped(f.badges, scope), nil
}

type fakeFriends struct {
	edges []social.FriendEdge
	err   error
}

func (f *fakeFriends) FetchAcceptedFriendEdges(_ context.Context, userID string) ([]social.FriendEdge, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []social.FriendEdge
	for _, e := range f.edges {
		if e.Status == social.FriendshipAccepted && (e.FromUser == userID || e.ToUser == userID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// MockProfileLookup is a testify mock of leaderboard.ProfileLookup.
type MockProfileLookup struct {
	mock.Mock
}

func (m *MockProfileLookup) FetchDisplayProfiles(ctx context.Context, userIDs []string) (map[string]leaderboard.Profile, error) {
	args := m.Called(ctx, userIDs)
	if p := args.Get(0); p != nil {
		return p.(map[string]leaderboard.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeBadgeStore struct {
	defs     []badge.Definition
	earned   []badge.UserBadge
	sessions []study.Session
	defsErr  error
}

func (f *fakeBadgeStore) FetchAllDefinitions(context.Context) ([]badge.Definition, error) {
	return f.defs, f.defsErr
}

func (f *fakeBadgeStore) GetDefinition(_ context.Context, id string) (*badge.Definition, error) {
	for _, d := range f.defs {
		if d.ID == id {
			def := d
			return &def, nil
		}
	}
	return nil, badge.ErrBadgeNotFound
}

func (f *fakeBadgeStore) FetchEarned(context.Context, string) ([]badge.UserBadge, error) {
	return f.earned, nil
}

func (f *fakeBadgeStore) InsertEarned(context.Context, string, string, time.Time) (*badge.UserBadge, badge.AwardOutcome, error) {
	return nil, badge.OutcomeAlreadyExists, nil
}

func (f *fakeBadgeStore) Create(context.Context, *study.Session) error { return nil }

func (f *fakeBadgeStore) FetchUserSessions(context.Context, string, *time.Time) ([]study.Session, error) {
	return f.sessions, nil
}

func (f *fakeBadgeStore) ListActiveUsers(context.Context, time.Time) ([]string, error) {
	return nil, nil
}
