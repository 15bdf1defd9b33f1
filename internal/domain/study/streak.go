package study

import (
	"sort"
	"time"

	"github.com/studyhub/study-hub/pkg/timeutil"
)

// CurrentStreak returns the number of consecutive calendar days, ending today
// or yesterday, on which at least one session was completed.
//
// Dates may repeat; only the calendar date of each value is considered.
// A most recent date two or more days before today breaks the streak.
func CurrentStreak(dates []time.Time, today time.Time) int {
	unique := uniqueDatesDesc(dates)
	if len(unique) == 0 {
		return 0
	}

	if timeutil.DaysBetween(unique[0], today) > 1 {
		return 0
	}

	streak := 1
	for i := 1; i < len(unique); i++ {
		if timeutil.DaysBetween(unique[i], unique[i-1]) != 1 {
			break
		}
		streak++
	}
	return streak
}

// uniqueDatesDesc deduplicates to calendar dates, most recent first.
func uniqueDatesDesc(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	unique := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := timeutil.DateOf(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		unique = append(unique, day)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].After(unique[j]) })
	return unique
}
