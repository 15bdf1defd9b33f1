package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job every Interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an IntervalSchedule. Non-positive intervals become one minute.
func Every(interval time.Duration) IntervalSchedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return IntervalSchedule{Interval: interval}
}

// Next returns t plus the interval.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the schedule in "@every" notation.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}
