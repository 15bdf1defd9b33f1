// Package leaderboard builds ranked boards from per-user aggregates.
// Boards are derived on every request and never persisted.
package leaderboard

import (
	"fmt"

	"github.com/studyhub/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Metric is the aggregated quantity a board ranks by.
type Metric string

const (
	// MetricStudyTime is the sum of session minutes.
	MetricStudyTime Metric = "study_time"
	// MetricBadges is the number of earned badges.
	MetricBadges Metric = "badges"
)

// Scope restricts which users a board covers.
type Scope string

const (
	ScopeFriends Scope = "friends"
	ScopeGlobal  Scope = "global"
)

// DefaultSelfLabel replaces the display name of the requesting user's entry.
const DefaultSelfLabel = "You"

// Profile is the display data joined onto entries.
type Profile struct {
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRIES
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one ranked row. Rank is 1-based over the full sorted aggregate.
type Entry struct {
	UserID      string  `json:"user_id"`
	DisplayName *string `json:"display_name"`
	MetricValue int64   `json:"metric_value"`
	Rank        int     `json:"rank"`
	IsSelf      bool    `json:"is_self"`
}

// Name returns the display name or an empty string.
func (e Entry) Name() string {
	if e.DisplayName == nil {
		return ""
	}
	return *e.DisplayName
}

// Pair is the two metric boards computed for one scope.
type Pair struct {
	StudyTime []Entry `json:"study_time"`
	Badges    []Entry `json:"badges"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrInvalidLimit is returned for a non-positive page size.
var ErrInvalidLimit = shared.NewDomainError("leaderboard", "Validate", shared.ErrValidation, "limit must be positive")

// ValidateLimit rejects non-positive limits and clamps limits above maxLimit.
// A maxLimit <= 0 disables clamping.
func ValidateLimit(limit, maxLimit int) (int, error) {
	if limit <= 0 {
		return 0, shared.WrapError("leaderboard", "Validate", shared.ErrValidation,
			fmt.Sprintf("limit must be positive, got %d", limit), ErrInvalidLimit)
	}
	if maxLimit > 0 && limit > maxLimit {
		return maxLimit, nil
	}
	return limit, nil
}
