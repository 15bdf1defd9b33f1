// Package badge contains badge definitions, award records and the progress
// calculator.
//
// A badge moves from not-earned to earned exactly once per user; there is no
// revocation path.
package badge

import (
	"fmt"
	"time"

	"github.com/studyhub/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA
// ══════════════════════════════════════════════════════════════════════════════

// CriteriaType is the kind of measurable progress a badge tracks.
type CriteriaType string

const (
	CriteriaSessionCount    CriteriaType = "session_count"
	CriteriaTotalMinutes    CriteriaType = "total_minutes"
	CriteriaConsecutiveDays CriteriaType = "consecutive_days"
	// CriteriaCustom badges are never evaluated automatically.
	CriteriaCustom CriteriaType = "custom"
)

// IsValid reports whether c is a known criteria type.
func (c CriteriaType) IsValid() bool {
	switch c {
	case CriteriaSessionCount, CriteriaTotalMinutes, CriteriaConsecutiveDays, CriteriaCustom:
		return true
	}
	return false
}

// IsAutomatic reports whether progress for c can be computed from sessions.
func (c CriteriaType) IsAutomatic() bool {
	return c.IsValid() && c != CriteriaCustom
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Definition is static badge reference data maintained outside the engine.
type Definition struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Icon         string       `json:"icon,omitempty"`
	CriteriaType CriteriaType `json:"criteria_type"`
	Threshold    int          `json:"threshold"`
}

// Validate checks the definition invariants.
func (d Definition) Validate() error {
	if d.ID == "" {
		return shared.NewDomainError("badge", "Validate", shared.ErrInvalidID, "badge id is required")
	}
	if d.Threshold <= 0 {
		return shared.NewDomainError("badge", "Validate", shared.ErrValueOutOfRange,
			fmt.Sprintf("badge %s: threshold must be positive, got %d", d.ID, d.Threshold))
	}
	return nil
}

// UserBadge is the award record. At most one exists per (UserID, BadgeID).
type UserBadge struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	BadgeID  string    `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// BadgeWithProgress annotates a definition with the user's progress.
type BadgeWithProgress struct {
	Definition
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
	Progress float64    `json:"progress"`
}

// ══════════════════════════════════════════════════════════════════════════════
// AWARD OUTCOME
// ══════════════════════════════════════════════════════════════════════════════

// AwardOutcome tags the result of an insert that may race with another award.
type AwardOutcome int

const (
	// OutcomeAwarded means this call created the award record.
	OutcomeAwarded AwardOutcome = iota + 1
	// OutcomeAlreadyExists means a record for the pair was already present.
	OutcomeAlreadyExists
)

// String returns the outcome label used in logs and metrics.
func (o AwardOutcome) String() string {
	switch o {
	case OutcomeAwarded:
		return "awarded"
	case OutcomeAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrAlreadyEarned is returned by a manual award of a badge the user already holds.
	ErrAlreadyEarned = shared.NewDomainError("badge", "Award", shared.ErrAlreadyExists, "badge already earned")

	// ErrBadgeNotFound is returned when the badge id has no definition.
	ErrBadgeNotFound = shared.NewDomainError("badge", "Get", shared.ErrNotFound, "badge not found")
)
