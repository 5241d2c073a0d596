package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/training/internal/domain"
)

const phaseColumns = `phase_id, external_user_id, name, goal_id, start_date, end_date, created_at, updated_at`

// CreatePhase inserts the phase row and its workout links in one transaction.
func (r *Repository) CreatePhase(ctx context.Context, phase domain.TrainingPhase) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertPhase = `INSERT INTO training_phases (phase_id, external_user_id, name, goal_id, start_date, end_date, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, insertPhase,
		phase.ID,
		phase.ExternalUserID,
		phase.Name,
		phase.GoalID,
		phase.StartDate,
		phase.EndDate,
		phase.CreatedAt,
		phase.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err = insertPhaseWorkouts(ctx, tx, phase.ID, phase.WorkoutIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetPhaseForUser retrieves a phase scoped to its owner; nil when absent.
func (r *Repository) GetPhaseForUser(ctx context.Context, phaseID, externalUserID string) (*domain.TrainingPhase, error) {
	const query = `SELECT ` + phaseColumns + ` FROM training_phases WHERE phase_id=$1 AND external_user_id=$2`

	row := r.pool.QueryRow(ctx, query, phaseID, externalUserID)
	var phase domain.TrainingPhase
	if err := scanPhase(row, &phase); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	workouts, err := r.workoutsForPhases(ctx, []string{phase.ID})
	if err != nil {
		return nil, err
	}
	phase.WorkoutIDs = workouts[phase.ID]
	return &phase, nil
}

// ListPhasesByUser returns the user's phases, most recent start first.
func (r *Repository) ListPhasesByUser(ctx context.Context, externalUserID string) ([]domain.TrainingPhase, error) {
	const query = `SELECT ` + phaseColumns + ` FROM training_phases
        WHERE external_user_id=$1 ORDER BY start_date DESC`

	return r.queryPhases(ctx, query, externalUserID)
}

// ListCurrentPhases returns phases covering the given instant, most recent
// start first. Open-ended phases count as current once started.
func (r *Repository) ListCurrentPhases(ctx context.Context, externalUserID string, now time.Time) ([]domain.TrainingPhase, error) {
	const query = `SELECT ` + phaseColumns + ` FROM training_phases
        WHERE external_user_id=$1 AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
        ORDER BY start_date DESC`

	return r.queryPhases(ctx, query, externalUserID, now)
}

// UpdatePhase replaces the mutable phase columns and the workout links in one
// transaction.
func (r *Repository) UpdatePhase(ctx context.Context, phase domain.TrainingPhase) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const updatePhase = `UPDATE training_phases SET name=$2, goal_id=$3, start_date=$4, end_date=$5, updated_at=$6
        WHERE phase_id=$1`

	_, err = tx.Exec(ctx, updatePhase,
		phase.ID,
		phase.Name,
		phase.GoalID,
		phase.StartDate,
		phase.EndDate,
		phase.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `DELETE FROM phase_workouts WHERE phase_id=$1`, phase.ID); err != nil {
		return err
	}
	if err = insertPhaseWorkouts(ctx, tx, phase.ID, phase.WorkoutIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeletePhase removes a phase row; workout links cascade.
func (r *Repository) DeletePhase(ctx context.Context, phaseID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM training_phases WHERE phase_id=$1`, phaseID)
	return err
}

func (r *Repository) queryPhases(ctx context.Context, query string, args ...interface{}) ([]domain.TrainingPhase, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	phases := make([]domain.TrainingPhase, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var phase domain.TrainingPhase
		if err := scanPhase(rows, &phase); err != nil {
			return nil, err
		}
		phases = append(phases, phase)
		ids = append(ids, phase.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		workouts, err := r.workoutsForPhases(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range phases {
			phases[i].WorkoutIDs = workouts[phases[i].ID]
		}
	}
	return phases, nil
}

func (r *Repository) workoutsForPhases(ctx context.Context, phaseIDs []string) (map[string][]string, error) {
	const query = `SELECT phase_id, workout_id FROM phase_workouts WHERE phase_id = ANY($1) ORDER BY workout_id`

	rows, err := r.pool.Query(ctx, query, phaseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string, len(phaseIDs))
	for rows.Next() {
		var phaseID, workoutID string
		if err := rows.Scan(&phaseID, &workoutID); err != nil {
			return nil, err
		}
		out[phaseID] = append(out[phaseID], workoutID)
	}
	return out, rows.Err()
}

func insertPhaseWorkouts(ctx context.Context, tx pgx.Tx, phaseID string, workoutIDs []string) error {
	const stmt = `INSERT INTO phase_workouts (phase_id, workout_id) VALUES ($1,$2)`
	for _, workoutID := range workoutIDs {
		if _, err := tx.Exec(ctx, stmt, phaseID, workoutID); err != nil {
			return err
		}
	}
	return nil
}

func scanPhase(row pgx.Row, phase *domain.TrainingPhase) error {
	return row.Scan(&phase.ID, &phase.ExternalUserID, &phase.Name, &phase.GoalID, &phase.StartDate, &phase.EndDate, &phase.CreatedAt, &phase.UpdatedAt)
}
