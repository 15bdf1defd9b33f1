package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

const (
	// EventSessionCompleted fires once a study session has been recorded as complete.
	EventSessionCompleted EventType = "study.session_completed"

	// EventBadgeAwarded fires for every badge newly awarded to a user.
	EventBadgeAwarded EventType = "badge.awarded"
)

// Event is the base interface for all domain events.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
}

// EventHandler processes a single event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID implements Event.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// SessionCompletedEvent is emitted after a study session is stored.
type SessionCompletedEvent struct {
	BaseEvent
	UserID          string    `json:"user_id"`
	SessionID       string    `json:"session_id"`
	DurationMinutes int       `json:"duration_minutes"`
	CompletedDate   time.Time `json:"completed_date"`
}

// NewSessionCompletedEvent creates a SessionCompletedEvent aggregated on the user.
func NewSessionCompletedEvent(userID, sessionID string, minutes int, completed time.Time) SessionCompletedEvent {
	return SessionCompletedEvent{
		BaseEvent:       NewBaseEvent(EventSessionCompleted, userID),
		UserID:          userID,
		SessionID:       sessionID,
		DurationMinutes: minutes,
		CompletedDate:   completed,
	}
}

// BadgeAwardedEvent is emitted for each badge a sweep or manual award creates.
type BadgeAwardedEvent struct {
	BaseEvent
	UserID   string    `json:"user_id"`
	BadgeID  string    `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// NewBadgeAwardedEvent creates a BadgeAwardedEvent aggregated on the user.
func NewBadgeAwardedEvent(userID, badgeID string, earnedAt time.Time) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, userID),
		UserID:    userID,
		BadgeID:   badgeID,
		EarnedAt:  earnedAt,
	}
}
