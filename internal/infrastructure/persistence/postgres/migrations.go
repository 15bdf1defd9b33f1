package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations, tracking them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var (
			version   int
			appliedAt time.Time
		)
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	last := 0
	for v := range applied {
		last = max(last, v)
	}
	if last == 0 {
		return nil
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			migration = &m.migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return m.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
}

// Status returns every embedded migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users_and_sessions", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_badges", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_friendships", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "seed_badge_definitions", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: USERS AND STUDY SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS study_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    completed_date DATE NOT NULL,
    duration_minutes INTEGER NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_duration CHECK (duration_minutes >= 0 AND duration_minutes <= 1440)
);

CREATE INDEX IF NOT EXISTS idx_study_sessions_user_date ON study_sessions(user_id, completed_date DESC);
CREATE INDEX IF NOT EXISTS idx_study_sessions_completed_date ON study_sessions(completed_date);
`

const migration001Down = `
DROP TABLE IF EXISTS study_sessions;
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: BADGES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS badge_definitions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    icon TEXT NOT NULL DEFAULT '',
    criteria_type TEXT NOT NULL,
    threshold INTEGER NOT NULL,

    CONSTRAINT valid_criteria CHECK (criteria_type IN ('session_count', 'total_minutes', 'consecutive_days', 'custom')),
    CONSTRAINT positive_threshold CHECK (threshold > 0)
);

-- At most one award per (user, badge); concurrent sweeps rely on this.
CREATE TABLE IF NOT EXISTS user_badges (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    badge_id TEXT NOT NULL REFERENCES badge_definitions(id),
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_user_badges_user_badge UNIQUE (user_id, badge_id)
);

CREATE INDEX IF NOT EXISTS idx_user_badges_user_earned ON user_badges(user_id, earned_at);
`

const migration002Down = `
DROP TABLE IF EXISTS user_badges;
DROP TABLE IF EXISTS badge_definitions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: FRIENDSHIPS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS friendships (
    from_user TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    to_user TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (from_user, to_user),
    CONSTRAINT valid_friendship_status CHECK (status IN ('pending', 'accepted', 'rejected')),
    CONSTRAINT no_self_friendship CHECK (from_user <> to_user)
);

CREATE INDEX IF NOT EXISTS idx_friendships_to_user ON friendships(to_user) WHERE status = 'accepted';
CREATE INDEX IF NOT EXISTS idx_friendships_from_user ON friendships(from_user) WHERE status = 'accepted';
`

const migration003Down = `
DROP TABLE IF EXISTS friendships;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: DEFAULT BADGES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
INSERT INTO badge_definitions (id, name, description, criteria_type, threshold) VALUES
    ('first-session', 'First Steps', 'Complete your first study session', 'session_count', 1),
    ('ten-sessions', 'Regular', 'Complete 10 study sessions', 'session_count', 10),
    ('fifty-sessions', 'Dedicated', 'Complete 50 study sessions', 'session_count', 50),
    ('one-hour', 'Warming Up', 'Study for 60 minutes in total', 'total_minutes', 60),
    ('ten-hours', 'Deep Focus', 'Study for 10 hours in total', 'total_minutes', 600),
    ('hundred-hours', 'Scholar', 'Study for 100 hours in total', 'total_minutes', 6000),
    ('three-day-streak', 'On a Roll', 'Study 3 days in a row', 'consecutive_days', 3),
    ('week-streak', 'Week Warrior', 'Study 7 days in a row', 'consecutive_days', 7),
    ('month-streak', 'Unstoppable', 'Study 30 days in a row', 'consecutive_days', 30),
    ('mentor', 'Mentor', 'Awarded for helping other students', 'custom', 1)
ON CONFLICT (id) DO NOTHING;
`

const migration004Down = `
DELETE FROM badge_definitions WHERE id IN (
    'first-session', 'ten-sessions', 'fifty-sessions', 'one-hour', 'ten-hours',
    'hundred-hours', 'three-day-streak', 'week-streak', 'month-streak', 'mentor'
) AND NOT EXISTS (SELECT 1 FROM user_badges ub WHERE ub.badge_id = badge_definitions.id);
`
