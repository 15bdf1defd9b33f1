package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/domain/study"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

var fixedNow = time.Date(2024, time.June, 10, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func seedSessions(store *memStore, userID string, minutes int, daysAgo ...int) {
	today := timeutil.DateOf(fixedNow)
	for i, n := range daysAgo {
		store.sessions = append(store.sessions, study.Session{
			ID:              userID + "-" + string(rune('a'+i)),
			UserID:          userID,
			CompletedDate:   today.AddDate(0, 0, -n),
			DurationMinutes: minutes,
		})
	}
}

func TestCheckAndAwardBadges_AwardsOnceThenNothing(t *testing.T) {
	store := &memStore{defs: []badge.Definition{
		{ID: "first-session", Name: "First Session", CriteriaType: badge.CriteriaSessionCount, Threshold: 1},
	}}
	seedSessions(store, "u1", 30, 0, 1, 2)
	h := NewCheckAndAwardBadgesHandler(store, store, WithClock(clock))

	first, err := h.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "first-session", first[0].BadgeID)
	assert.Equal(t, "u1", first[0].UserID)

	second, err := h.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, store.awardCount("u1", "first-session"))
}

func TestCheckAndAwardBadges_OnlyCompletedCriteria(t *testing.T) {
	store := &memStore{defs: []badge.Definition{
		{ID: "five-sessions", CriteriaType: badge.CriteriaSessionCount, Threshold: 5},
		{ID: "hour", CriteriaType: badge.CriteriaTotalMinutes, Threshold: 60},
		{ID: "three-day-streak", CriteriaType: badge.CriteriaConsecutiveDays, Threshold: 3},
		{ID: "staff-pick", CriteriaType: badge.CriteriaCustom, Threshold: 1},
	}}
	seedSessions(store, "u1", 25, 0, 1, 2)
	h := NewCheckAndAwardBadgesHandler(store, store, WithClock(clock))

	awarded, err := h.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
	require.NoError(t, err)

	got := make([]string, 0, len(awarded))
	for _, a := range awarded {
		got = append(got, a.BadgeID)
	}
	assert.ElementsMatch(t, []string{"hour", "three-day-streak"}, got)
}

func TestCheckAndAwardBadges_StreakUsesConfiguredLocation(t *testing.T) {
	// 15:00 UTC on June 10 is already June 11 in UTC+10.
	loc := time.FixedZone("UTC+10", 10*60*60)
	store := &memStore{defs: []badge.Definition{
		{ID: "two-day-streak", CriteriaType: badge.CriteriaConsecutiveDays, Threshold: 2},
	}}
	seedSessions(store, "u1", 10, 1, 2)

	utc := NewCheckAndAwardBadgesHandler(store, store, WithClock(clock))
	awarded, err := utc.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, awarded, 1)

	store.awards = nil
	ahead := NewCheckAndAwardBadgesHandler(store, store, WithClock(clock), WithLocation(loc))
	awarded, err = ahead.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, awarded)
}

func TestCheckAndAwardBadges_ConcurrentSweepsAwardOnce(t *testing.T) {
	store := &memStore{defs: []badge.Definition{
		{ID: "first-session", CriteriaType: badge.CriteriaSessionCount, Threshold: 1},
		{ID: "hour", CriteriaType: badge.CriteriaTotalMinutes, Threshold: 60},
	}}
	seedSessions(store, "u1", 60, 0)
	rec := &countingRecorder{}
	h := NewCheckAndAwardBadgesHandler(store, store, WithClock(clock), WithRecorder(rec))

	const sweeps = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < sweeps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			awarded, err := h.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
			assert.NoError(t, err)
			mu.Lock()
			total += len(awarded)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, total)
	assert.Equal(t, 1, store.awardCount("u1", "first-session"))
	assert.Equal(t, 1, store.awardCount("u1", "hour"))
	assert.Equal(t, 2, rec.awarded)
}

func TestCheckAndAwardBadges_SwallowsLostRace(t *testing.T) {
	store := &memStore{
		defs:       []badge.Definition{{ID: "first-session", CriteriaType: badge.CriteriaSessionCount, Threshold: 1}},
		awards:     []badge.UserBadge{{ID: "x", UserID: "u1", BadgeID: "first-session", EarnedAt: fixedNow}},
		hideEarned: true,
	}
	seedSessions(store, "u1", 10, 0)
	rec := &countingRecorder{}
	h := NewCheckAndAwardBadgesHandler(store, store, WithClock(clock), WithRecorder(rec))

	awarded, err := h.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, awarded)
	assert.Equal(t, 1, rec.conflict)
}

func TestCheckAndAwardBadges_ContinuesAfterAwardFailure(t *testing.T) {
	store := &memStore{
		defs: []badge.Definition{
			{ID: "broken", CriteriaType: badge.CriteriaSessionCount, Threshold: 1},
			{ID: "hour", CriteriaType: badge.CriteriaTotalMinutes, Threshold: 60},
		},
		insertErr: map[string]error{"broken": errors.New("connection reset")},
	}
	seedSessions(store, "u1", 90, 0)
	rec := &countingRecorder{}
	h := NewCheckAndAwardBadgesHandler(store, store, WithClock(clock), WithRecorder(rec))

	awarded, err := h.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, "hour", awarded[0].BadgeID)
	assert.Equal(t, 1, rec.failed)
}

func TestCheckAndAwardBadges_ReadFailureAborts(t *testing.T) {
	store := &memStore{sessionsErr: errors.New("pool closed")}
	h := NewCheckAndAwardBadgesHandler(store, store)

	_, err := h.Handle(context.Background(), CheckAndAwardBadgesCommand{UserID: "u1"})
	assert.True(t, shared.IsStore(err))
}

func TestCheckAndAwardBadges_RequiresUserID(t *testing.T) {
	store := &memStore{}
	h := NewCheckAndAwardBadgesHandler(store, store)

	_, err := h.Handle(context.Background(), CheckAndAwardBadgesCommand{})
	assert.True(t, shared.IsValidation(err))
}
