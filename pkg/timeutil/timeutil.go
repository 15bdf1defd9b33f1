// Package timeutil provides calendar-date helpers.
// A "date" here is a time.Time at midnight UTC carrying the year, month and
// day observed in some location; comparing two such values never crosses a
// DST boundary.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date creates a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar date t falls on in its own location.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// DateIn returns the calendar date t falls on in loc.
func DateIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(t.In(loc))
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) time.Time {
	return DateIn(time.Now(), loc)
}

// DaysBetween returns the whole number of days from a to b (b - a).
// Both arguments are normalised to calendar dates first.
func DaysBetween(a, b time.Time) int {
	da, db := DateOf(a), DateOf(b)
	return int(db.Sub(da).Hours() / 24)
}

// SameDay checks if a and b share a calendar date.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}

// LoadLocation loads a named location, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
