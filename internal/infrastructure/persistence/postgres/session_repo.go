package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/studyhub/study-hub/internal/domain/study"
)

// SessionRepository implements study.Repository.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

var _ study.Repository = (*SessionRepository)(nil)

// ensureUser creates a bare user row so foreign keys hold for users that
// have not set up a profile yet.
func ensureUser(ctx context.Context, q Querier, userID string) error {
	_, err := q.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	return err
}

// Create stores a completed session.
func (r *SessionRepository) Create(ctx context.Context, s *study.Session) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if err := ensureUser(ctx, tx, s.UserID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO study_sessions (id, user_id, completed_date, duration_minutes)
			VALUES ($1, $2, $3, $4)
		`, s.ID, s.UserID, s.CompletedDate, s.DurationMinutes)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

// FetchUserSessions returns the user's sessions, most recent first.
func (r *SessionRepository) FetchUserSessions(ctx context.Context, userID string, since *time.Time) ([]study.Session, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, user_id, completed_date, duration_minutes
		FROM study_sessions
		WHERE user_id = $1
		  AND ($2::date IS NULL OR completed_date >= $2::date)
		ORDER BY completed_date DESC, id
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]study.Session, 0)
	for rows.Next() {
		var s study.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.CompletedDate, &s.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListActiveUsers returns users with a session on or after since.
func (r *SessionRepository) ListActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT DISTINCT user_id
		FROM study_sessions
		WHERE completed_date >= $1::date
		ORDER BY user_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowTo[string])
}
