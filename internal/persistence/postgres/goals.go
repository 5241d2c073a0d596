package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"example.com/training/internal/domain"
)

// CreateGoal inserts a goal row.
func (r *Repository) CreateGoal(ctx context.Context, goal domain.Goal) error {
	const stmt = `INSERT INTO goals (goal_id, external_user_id, name, goal_type, target_value, current_value, progress, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := r.pool.Exec(ctx, stmt,
		goal.ID,
		goal.ExternalUserID,
		goal.Name,
		goal.Type,
		goal.TargetValue,
		goal.CurrentValue,
		goal.Progress,
		goal.Status,
		goal.CreatedAt,
		goal.UpdatedAt,
	)
	return err
}

// GetGoalForUser retrieves a goal scoped to its owner; nil when absent.
func (r *Repository) GetGoalForUser(ctx context.Context, goalID, externalUserID string) (*domain.Goal, error) {
	const query = `SELECT goal_id, external_user_id, name, goal_type, target_value, current_value, progress, status, created_at, updated_at
        FROM goals WHERE goal_id=$1 AND external_user_id=$2`

	row := r.pool.QueryRow(ctx, query, goalID, externalUserID)
	var goal domain.Goal
	if err := row.Scan(&goal.ID, &goal.ExternalUserID, &goal.Name, &goal.Type, &goal.TargetValue, &goal.CurrentValue, &goal.Progress, &goal.Status, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &goal, nil
}

// ListGoalsByUser returns the user's goals, newest first.
func (r *Repository) ListGoalsByUser(ctx context.Context, externalUserID string) ([]domain.Goal, error) {
	const query = `SELECT goal_id, external_user_id, name, goal_type, target_value, current_value, progress, status, created_at, updated_at
        FROM goals WHERE external_user_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, externalUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Goal, 0)
	for rows.Next() {
		var goal domain.Goal
		if err := rows.Scan(&goal.ID, &goal.ExternalUserID, &goal.Name, &goal.Type, &goal.TargetValue, &goal.CurrentValue, &goal.Progress, &goal.Status, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, rows.Err()
}

// UpdateGoal replaces the mutable goal columns.
func (r *Repository) UpdateGoal(ctx context.Context, goal domain.Goal) error {
	const stmt = `UPDATE goals SET name=$2, target_value=$3, current_value=$4, progress=$5, status=$6, updated_at=$7
        WHERE goal_id=$1`

	_, err := r.pool.Exec(ctx, stmt,
		goal.ID,
		goal.Name,
		goal.TargetValue,
		goal.CurrentValue,
		goal.Progress,
		goal.Status,
		goal.UpdatedAt,
	)
	return err
}

// DeleteGoal removes a goal row.
func (r *Repository) DeleteGoal(ctx context.Context, goalID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM goals WHERE goal_id=$1`, goalID)
	return err
}
