package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/domain/study"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

func newBadgeStore() *fakeBadgeStore {
	today := timeutil.Date(2024, time.June, 10)
	return &fakeBadgeStore{
		defs: []badge.Definition{
			{ID: "first", CriteriaType: badge.CriteriaSessionCount, Threshold: 1},
			{ID: "ten", CriteriaType: badge.CriteriaSessionCount, Threshold: 10},
			{ID: "hours", CriteriaType: badge.CriteriaTotalMinutes, Threshold: 600},
			{ID: "mentor", CriteriaType: badge.CriteriaCustom, Threshold: 1},
		},
		earned: []badge.UserBadge{
			{ID: "a1", UserID: "u1", BadgeID: "mentor", EarnedAt: today.AddDate(0, 0, -5)},
			{ID: "a2", UserID: "u1", BadgeID: "first", EarnedAt: today.AddDate(0, 0, -1)},
		},
		sessions: []study.Session{
			{ID: "s1", UserID: "u1", CompletedDate: today, DurationMinutes: 60},
			{ID: "s2", UserID: "u1", CompletedDate: today.AddDate(0, 0, -1), DurationMinutes: 90},
		},
	}
}

func TestGetUserBadges_EarnedOnly(t *testing.T) {
	store := newBadgeStore()
	h := NewGetUserBadgesHandler(store, store, nil)

	got, err := h.Handle(context.Background(), GetUserBadgesQuery{UserID: "u1"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "mentor", got[0].ID)
	assert.Equal(t, "first", got[1].ID)
	for _, b := range got {
		assert.True(t, b.Earned)
		assert.Equal(t, badge.Complete, b.Progress)
		assert.NotNil(t, b.EarnedAt)
	}
}

func TestGetUserBadges_WithProgress(t *testing.T) {
	store := newBadgeStore()
	h := NewGetUserBadgesHandler(store, store, nil)
	h.now = func() time.Time { return time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC) }

	got, err := h.Handle(context.Background(), GetUserBadgesQuery{UserID: "u1", IncludeProgress: true})
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.True(t, got[0].Earned)
	assert.True(t, got[1].Earned)

	assert.Equal(t, "ten", got[2].ID)
	assert.False(t, got[2].Earned)
	assert.InDelta(t, 20.0, got[2].Progress, 1e-9)

	assert.Equal(t, "hours", got[3].ID)
	assert.InDelta(t, 25.0, got[3].Progress, 1e-9)
}

func TestGetUserBadges_Errors(t *testing.T) {
	store := newBadgeStore()
	store.defsErr = errors.New("down")
	h := NewGetUserBadgesHandler(store, store, nil)

	_, err := h.Handle(context.Background(), GetUserBadgesQuery{UserID: "u1"})
	assert.True(t, shared.IsStore(err))

	_, err = h.Handle(context.Background(), GetUserBadgesQuery{})
	assert.True(t, shared.IsValidation(err))
}

func TestGetAllBadges(t *testing.T) {
	store := newBadgeStore()

	defs, err := NewGetAllBadgesHandler(store).Handle(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs, 4)

	defs, err = NewGetAllBadgesHandler(&fakeBadgeStore{}).Handle(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, defs)
	assert.Empty(t, defs)
}
