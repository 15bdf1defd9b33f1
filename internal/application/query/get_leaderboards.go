package query

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/studyhub/study-hub/internal/domain/leaderboard"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/domain/social"
	"github.com/studyhub/study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARDS QUERY
// Four boards: friends and global scope, each ranked by study time and by
// badge count. The four aggregations run concurrently and the whole query
// fails if any of them fails. Display names are best-effort.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardsQuery selects the boards for one requesting user.
type GetLeaderboardsQuery struct {
	UserID string
	Limit  int
}

// Validate validates the query.
func (q GetLeaderboardsQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// LeaderboardsMetadata describes how the boards were built.
type LeaderboardsMetadata struct {
	UserID      string    `json:"user_id"`
	Limit       int       `json:"limit"`
	GeneratedAt time.Time `json:"generated_at"`
}

// LeaderboardsResult is the assembled response.
type LeaderboardsResult struct {
	Friends  leaderboard.Pair     `json:"friends"`
	Global   leaderboard.Pair     `json:"global"`
	Metadata LeaderboardsMetadata `json:"metadata"`
}

// BuildRecorder observes leaderboard build latency.
type BuildRecorder interface {
	ObserveLeaderboardBuild(d time.Duration, err error)
}

// LeaderboardsConfig holds tunables for GetLeaderboardsHandler.
type LeaderboardsConfig struct {
	MaxLimit  int
	SelfLabel string
}

// GetLeaderboardsHandler handles GetLeaderboardsQuery.
type GetLeaderboardsHandler struct {
	friends  social.FriendRepository
	boards   leaderboard.Repository
	profiles leaderboard.ProfileLookup
	config   LeaderboardsConfig
	recorder BuildRecorder
	log      *logger.Logger
	now      func() time.Time
}

// NewGetLeaderboardsHandler creates a new GetLeaderboardsHandler.
// profiles and recorder may be nil.
func NewGetLeaderboardsHandler(
	friends social.FriendRepository,
	boards leaderboard.Repository,
	profiles leaderboard.ProfileLookup,
	config LeaderboardsConfig,
	recorder BuildRecorder,
	log *logger.Logger,
) *GetLeaderboardsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetLeaderboardsHandler{
		friends:  friends,
		boards:   boards,
		profiles: profiles,
		config:   config,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// Handle builds the four boards.
func (h *GetLeaderboardsHandler) Handle(ctx context.Context, q GetLeaderboardsQuery) (result *LeaderboardsResult, err error) {
	start := time.Now()
	defer func() {
		if h.recorder != nil {
			h.recorder.ObserveLeaderboardBuild(time.Since(start), err)
		}
	}()

	if err := q.Validate(); err != nil {
		return nil, err
	}
	limit, err := leaderboard.ValidateLimit(q.Limit, h.config.MaxLimit)
	if err != nil {
		return nil, err
	}

	edges, err := h.friends.FetchAcceptedFriendEdges(ctx, q.UserID)
	if err != nil {
		return nil, shared.StoreError("social", "FetchAcceptedFriendEdges", err)
	}
	scope := social.WithSelf(q.UserID, social.ResolveFriends(q.UserID, edges))

	var friendsTime, friendsBadges, globalTime, globalBadges map[string]int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		friendsTime, err = h.aggregate(gctx, leaderboard.MetricStudyTime, scope)
		return err
	})
	g.Go(func() (err error) {
		friendsBadges, err = h.aggregate(gctx, leaderboard.MetricBadges, scope)
		return err
	})
	g.Go(func() (err error) {
		globalTime, err = h.aggregate(gctx, leaderboard.MetricStudyTime, nil)
		return err
	})
	g.Go(func() (err error) {
		globalBadges, err = h.aggregate(gctx, leaderboard.MetricBadges, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts := leaderboard.AssembleOptions{Limit: limit, RequestingUserID: q.UserID, SelfLabel: h.config.SelfLabel}
	result = &LeaderboardsResult{
		Friends: leaderboard.Pair{
			StudyTime: leaderboard.Assemble(friendsTime, opts),
			Badges:    leaderboard.Assemble(friendsBadges, opts),
		},
		Global: leaderboard.Pair{
			StudyTime: leaderboard.Assemble(globalTime, opts),
			Badges:    leaderboard.Assemble(globalBadges, opts),
		},
		Metadata: LeaderboardsMetadata{
			UserID:      q.UserID,
			Limit:       limit,
			GeneratedAt: h.now().UTC(),
		},
	}

	h.applyProfiles(ctx, q.UserID, result)
	return result, nil
}

func (h *GetLeaderboardsHandler) aggregate(ctx context.Context, metric leaderboard.Metric, scope []string) (map[string]int64, error) {
	var (
		values map[string]int64
		err    error
		op     string
	)
	switch metric {
	case leaderboard.MetricStudyTime:
		op = "AggregateStudyMinutes"
		values, err = h.boards.AggregateStudyMinutes(ctx, scope)
	default:
		op = "AggregateBadgeCounts"
		values, err = h.boards.AggregateBadgeCounts(ctx, scope)
	}
	if err != nil {
		return nil, shared.StoreError("leaderboard", op, err)
	}
	return values, nil
}

// applyProfiles joins display names onto every displayed entry. A lookup
// failure leaves names nil.
func (h *GetLeaderboardsHandler) applyProfiles(ctx context.Context, userID string, r *LeaderboardsResult) {
	if h.profiles == nil {
		return
	}
	ids := leaderboard.UserIDs(r.Friends.StudyTime, r.Friends.Badges, r.Global.StudyTime, r.Global.Badges)
	if len(ids) == 0 {
		return
	}

	profiles, err := h.profiles.FetchDisplayProfiles(ctx, ids)
	if err != nil {
		h.log.Warn("display profile lookup failed",
			logger.UserID(userID), logger.Int("ids", len(ids)), logger.Err(err))
		return
	}

	for _, page := range [][]leaderboard.Entry{r.Friends.StudyTime, r.Friends.Badges, r.Global.StudyTime, r.Global.Badges} {
		leaderboard.ApplyProfiles(page, profiles)
	}
}
