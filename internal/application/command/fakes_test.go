package command

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/domain/study"
)

// memStore is an in-memory store enforcing one award per (user, badge).
type memStore struct {
	mu       sync.Mutex
	sessions []study.Session
	defs     []badge.Definition
	awards   []badge.UserBadge

	sessionsErr error
	insertErr   map[string]error
	// hideEarned makes FetchEarned report nothing, simulating a racing writer.
	hideEarned bool
}

func (m *memStore) Create(_ context.Context, s *study.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, *s)
	return nil
}

func (m *memStore) FetchUserSessions(_ context.Context, userID string, since *time.Time) ([]study.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionsErr != nil {
		return nil, m.sessionsErr
	}
	var out []study.Session
	for _, s := range m.sessions {
		if s.UserID != userID {
			continue
		}
		if since != nil && s.CompletedDate.Before(*since) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) ListActiveUsers(_ context.Context, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, s := range m.sessions {
		if _, ok := seen[s.UserID]; ok || s.CompletedDate.Before(since) {
			continue
		}
		seen[s.UserID] = struct{}{}
		out = append(out, s.UserID)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) FetchAllDefinitions(context.Context) ([]badge.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]badge.Definition(nil), m.defs...), nil
}

func (m *memStore) GetDefinition(_ context.Context, badgeID string) (*badge.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.defs {
		if d.ID == badgeID {
			def := d
			return &def, nil
		}
	}
	return nil, badge.ErrBadgeNotFound
}

func (m *memStore) FetchEarned(_ context.Context, userID string) ([]badge.UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideEarned {
		return nil, nil
	}
	var out []badge.UserBadge
	for _, a := range m.awards {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) InsertEarned(_ context.Context, userID, badgeID string, earnedAt time.Time) (*badge.UserBadge, badge.AwardOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insertErr[badgeID]; err != nil {
		return nil, 0, err
	}
	for _, a := range m.awards {
		if a.UserID == userID && a.BadgeID == badgeID {
			return nil, badge.OutcomeAlreadyExists, nil
		}
	}
	ub := badge.UserBadge{ID: uuid.NewString(), UserID: userID, BadgeID: badgeID, EarnedAt: earnedAt}
	m.awards = append(m.awards, ub)
	return &ub, badge.OutcomeAwarded, nil
}

func (m *memStore) awardCount(userID, badgeID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.awards {
		if a.UserID == userID && a.BadgeID == badgeID {
			n++
		}
	}
	return n
}

type countingRecorder struct {
	mu                        sync.Mutex
	awarded, conflict, failed int
}

func (r *countingRecorder) BadgeAwarded(string)  { r.mu.Lock(); r.awarded++; r.mu.Unlock() }
func (r *countingRecorder) AwardConflict(string) { r.mu.Lock(); r.conflict++; r.mu.Unlock() }
func (r *countingRecorder) AwardFailed(string)   { r.mu.Lock(); r.failed++; r.mu.Unlock() }

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
	err    error
}

func (p *capturePublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}
