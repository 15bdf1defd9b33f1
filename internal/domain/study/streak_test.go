package study

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

func TestCurrentStreak(t *testing.T) {
	today := timeutil.Date(2024, time.June, 10)
	daysAgo := func(n int) time.Time { return today.AddDate(0, 0, -n) }

	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{name: "no sessions", dates: nil, want: 0},
		{name: "today yesterday and two days ago", dates: []time.Time{daysAgo(0), daysAgo(1), daysAgo(2)}, want: 3},
		{name: "gap breaks continuation", dates: []time.Time{daysAgo(0), daysAgo(3)}, want: 1},
		{name: "only three days ago", dates: []time.Time{daysAgo(3)}, want: 0},
		{name: "single session today", dates: []time.Time{daysAgo(0)}, want: 1},
		{name: "single session yesterday", dates: []time.Time{daysAgo(1)}, want: 1},
		{name: "streak ending yesterday", dates: []time.Time{daysAgo(1), daysAgo(2), daysAgo(3), daysAgo(5)}, want: 3},
		{name: "duplicates and unsorted input", dates: []time.Time{daysAgo(1), daysAgo(0), daysAgo(1), daysAgo(0), daysAgo(2)}, want: 3},
		{
			name: "time of day is ignored",
			dates: []time.Time{
				time.Date(2024, time.June, 10, 23, 30, 0, 0, time.UTC),
				time.Date(2024, time.June, 9, 0, 5, 0, 0, time.UTC),
			},
			want: 2,
		},
		{name: "future dates do not break a current streak", dates: []time.Time{daysAgo(-1), daysAgo(0)}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentStreak(tt.dates, today))
		})
	}
}

func TestCurrentStreak_AcrossMonthBoundary(t *testing.T) {
	today := timeutil.Date(2024, time.March, 1)
	dates := []time.Time{
		timeutil.Date(2024, time.February, 28),
		timeutil.Date(2024, time.February, 29),
		timeutil.Date(2024, time.March, 1),
	}

	assert.Equal(t, 3, CurrentStreak(dates, today))
}

func TestNewSession(t *testing.T) {
	completed := time.Date(2024, time.June, 10, 18, 45, 0, 0, time.UTC)

	s, err := NewSession("s1", "u1", completed, 45)
	require.NoError(t, err)
	assert.Equal(t, timeutil.Date(2024, time.June, 10), s.CompletedDate)

	_, err = NewSession("s2", "", completed, 45)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = NewSession("s3", "u1", completed, -5)
	assert.True(t, shared.IsValidation(err))
}

func TestTotalMinutesAndDates(t *testing.T) {
	d := timeutil.Date(2024, time.June, 1)
	sessions := []Session{
		{ID: "a", UserID: "u1", CompletedDate: d, DurationMinutes: 30},
		{ID: "b", UserID: "u1", CompletedDate: d.AddDate(0, 0, 1), DurationMinutes: 90},
	}

	assert.Equal(t, int64(120), TotalMinutes(sessions))
	assert.Equal(t, []time.Time{d, d.AddDate(0, 0, 1)}, Dates(sessions))
	assert.Zero(t, TotalMinutes(nil))
}
