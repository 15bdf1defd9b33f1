package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/studyhub/study-hub/internal/domain/badge"
)

// BadgeRepository implements badge.Repository.
type BadgeRepository struct {
	conn *Connection
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(conn *Connection) *BadgeRepository {
	return &BadgeRepository{conn: conn}
}

var _ badge.Repository = (*BadgeRepository)(nil)

const badgeColumns = `id, name, description, icon, criteria_type, threshold`

func scanDefinition(row pgx.Row) (badge.Definition, error) {
	var d badge.Definition
	var criteria string
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Icon, &criteria, &d.Threshold)
	d.CriteriaType = badge.CriteriaType(criteria)
	return d, err
}

// FetchAllDefinitions returns every badge definition ordered by id.
func (r *BadgeRepository) FetchAllDefinitions(ctx context.Context) ([]badge.Definition, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+badgeColumns+` FROM badge_definitions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query badge definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]badge.Definition, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// GetDefinition returns one definition or badge.ErrBadgeNotFound.
func (r *BadgeRepository) GetDefinition(ctx context.Context, badgeID string) (*badge.Definition, error) {
	d, err := scanDefinition(r.conn.QueryRow(ctx, `SELECT `+badgeColumns+` FROM badge_definitions WHERE id = $1`, badgeID))
	if err != nil {
		if IsNoRows(err) {
			return nil, badge.ErrBadgeNotFound
		}
		return nil, fmt.Errorf("get badge definition: %w", err)
	}
	return &d, nil
}

// FetchEarned returns the user's awards, oldest first.
func (r *BadgeRepository) FetchEarned(ctx context.Context, userID string) ([]badge.UserBadge, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, user_id, badge_id, earned_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at, badge_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user badges: %w", err)
	}
	defer rows.Close()

	earned := make([]badge.UserBadge, 0)
	for rows.Next() {
		var ub badge.UserBadge
		if err := rows.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan user badge: %w", err)
		}
		earned = append(earned, ub)
	}
	return earned, rows.Err()
}

// InsertEarned creates the award. The (user_id, badge_id) unique constraint
// turns a concurrent duplicate into badge.OutcomeAlreadyExists.
func (r *BadgeRepository) InsertEarned(ctx context.Context, userID, badgeID string, earnedAt time.Time) (*badge.UserBadge, badge.AwardOutcome, error) {
	ub := badge.UserBadge{ID: uuid.NewString(), UserID: userID, BadgeID: badgeID}
	inserted := false

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO user_badges (id, user_id, badge_id, earned_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, badge_id) DO NOTHING
			RETURNING earned_at
		`, ub.ID, userID, badgeID, earnedAt).Scan(&ub.EarnedAt)
		switch {
		case err == nil:
			inserted = true
			return nil
		case IsNoRows(err):
			return nil
		default:
			return err
		}
	})

	switch {
	case err == nil && inserted:
		return &ub, badge.OutcomeAwarded, nil
	case err == nil, IsUniqueViolation(err):
		return nil, badge.OutcomeAlreadyExists, nil
	default:
		return nil, 0, fmt.Errorf("insert user badge: %w", err)
	}
}
