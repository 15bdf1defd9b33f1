// Package study holds the study session model and the streak calculator.
// Sessions are append-only facts: they are created once when a user marks
// a session complete and never mutated afterwards.
package study

import (
	"fmt"
	"time"

	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

// MaxSessionMinutes bounds a single session to one calendar day.
const MaxSessionMinutes = 24 * 60

// Session is a completed study session.
type Session struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	CompletedDate   time.Time `json:"completed_date"` // calendar date, UTC midnight
	DurationMinutes int       `json:"duration_minutes"`
}

// NewSession validates and builds a completed session.
func NewSession(id, userID string, completed time.Time, minutes int) (*Session, error) {
	s := &Session{
		ID:              id,
		UserID:          userID,
		CompletedDate:   timeutil.DateOf(completed),
		DurationMinutes: minutes,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the session invariants.
func (s *Session) Validate() error {
	if s.ID == "" {
		return shared.NewDomainError("study", "Validate", shared.ErrInvalidID, "session id is required")
	}
	if s.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if s.CompletedDate.IsZero() {
		return shared.NewDomainError("study", "Validate", shared.ErrInvalidInput, "completed date is required")
	}
	if s.DurationMinutes < 0 || s.DurationMinutes > MaxSessionMinutes {
		return shared.NewDomainError("study", "Validate", shared.ErrValueOutOfRange,
			fmt.Sprintf("duration must be between 0 and %d minutes", MaxSessionMinutes))
	}
	return nil
}

// Dates returns the completion dates of sessions, in input order.
func Dates(sessions []Session) []time.Time {
	dates := make([]time.Time, len(sessions))
	for i, s := range sessions {
		dates[i] = s.CompletedDate
	}
	return dates
}

// TotalMinutes sums the duration of sessions.
func TotalMinutes(sessions []Session) int64 {
	var total int64
	for _, s := range sessions {
		total += int64(s.DurationMinutes)
	}
	return total
}
