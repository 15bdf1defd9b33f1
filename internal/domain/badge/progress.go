package badge

import (
	"time"

	"github.com/studyhub/study-hub/internal/domain/study"
)

// Complete is the progress value at which a badge is earned.
const Complete = 100.0

// Progress returns the user's progress towards def as a percentage in [0, 100].
// Custom and unknown criteria always report 0.
func Progress(sessions []study.Session, def Definition, today time.Time) float64 {
	if def.Threshold <= 0 {
		return 0
	}

	var current float64
	switch def.CriteriaType {
	case CriteriaSessionCount:
		current = float64(len(sessions))
	case CriteriaTotalMinutes:
		current = float64(study.TotalMinutes(sessions))
	case CriteriaConsecutiveDays:
		current = float64(study.CurrentStreak(study.Dates(sessions), today))
	default:
		return 0
	}

	return min(Complete, Complete*current/float64(def.Threshold))
}

// IsEarnable reports whether sessions fully satisfy def.
func IsEarnable(sessions []study.Session, def Definition, today time.Time) bool {
	return Progress(sessions, def, today) >= Complete
}
