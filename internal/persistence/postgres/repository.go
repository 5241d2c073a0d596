// Package postgres provides pgx-backed persistence for training data.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/training/internal/domain"
	"example.com/training/internal/observability"
)

// Repository provides Postgres-backed persistence for sessions, exercises and
// workouts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSession persists the session row and all of its set rows in a single
// transaction; a session is never partially persisted.
func (r *Repository) CreateSession(ctx context.Context, session domain.Session) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertSession = `INSERT INTO sessions (session_id, external_user_id, workout_id, group_external_id, session_date, duration_sec, notes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, insertSession,
		session.ID,
		session.ExternalUserID,
		session.WorkoutID,
		session.GroupExternalID,
		session.Date,
		session.DurationSec,
		session.Notes,
		session.CreatedAt,
	)
	if err != nil {
		return err
	}

	const insertSet = `INSERT INTO session_sets (session_id, exercise_id, set_number, reps, load, rest_sec, rpe, notes, tonnage)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	for _, set := range session.Sets {
		if _, err = tx.Exec(ctx, insertSet,
			session.ID,
			set.ExerciseID,
			set.SetNumber,
			set.Reps,
			set.Load,
			set.RestSec,
			set.RPE,
			set.Notes,
			set.Tonnage,
		); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordSessionPersisted(session.CreatedAt)
	return nil
}

// GetSessionForUser retrieves a session with its sets, scoped to the owner.
// Returns nil when no session matches.
func (r *Repository) GetSessionForUser(ctx context.Context, sessionID, externalUserID string) (*domain.Session, error) {
	const query = `SELECT session_id, external_user_id, workout_id, group_external_id, session_date, duration_sec, notes, created_at
        FROM sessions WHERE session_id=$1 AND external_user_id=$2`

	row := r.pool.QueryRow(ctx, query, sessionID, externalUserID)
	var session domain.Session
	if err := row.Scan(&session.ID, &session.ExternalUserID, &session.WorkoutID, &session.GroupExternalID, &session.Date, &session.DurationSec, &session.Notes, &session.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	sets, err := r.setsForSessions(ctx, []string{session.ID})
	if err != nil {
		return nil, err
	}
	session.Sets = sets[session.ID]
	return &session, nil
}

// ListSessionsByUser returns sessions ordered by date descending with keyset
// pagination on (session_date, session_id).
func (r *Repository) ListSessionsByUser(ctx context.Context, externalUserID string, cursor *domain.Cursor, limit int) ([]domain.Session, *domain.Cursor, error) {
	args := []interface{}{externalUserID, limit}
	query := `SELECT session_id, external_user_id, workout_id, group_external_id, session_date, duration_sec, notes, created_at
        FROM sessions WHERE external_user_id=$1`

	if cursor != nil {
		query += ` AND (session_date, session_id) < ($3, $4)`
		args = append(args, cursor.Date, cursor.ID)
	}

	query += ` ORDER BY session_date DESC, session_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.ID, &session.ExternalUserID, &session.WorkoutID, &session.GroupExternalID, &session.Date, &session.DurationSec, &session.Notes, &session.CreatedAt); err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, session)
		ids = append(ids, session.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(ids) > 0 {
		sets, err := r.setsForSessions(ctx, ids)
		if err != nil {
			return nil, nil, err
		}
		for i := range sessions {
			sessions[i].Sets = sets[sessions[i].ID]
		}
	}

	var nextCursor *domain.Cursor
	if len(sessions) == limit {
		last := sessions[len(sessions)-1]
		nextCursor = &domain.Cursor{Date: last.Date, ID: last.ID}
	}

	return sessions, nextCursor, nil
}

func (r *Repository) setsForSessions(ctx context.Context, sessionIDs []string) (map[string][]domain.SetRecord, error) {
	const query = `SELECT session_id, exercise_id, set_number, reps, load, rest_sec, rpe, notes, tonnage
        FROM session_sets WHERE session_id = ANY($1) ORDER BY set_id`

	rows, err := r.pool.Query(ctx, query, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.SetRecord, len(sessionIDs))
	for rows.Next() {
		var sessionID string
		var set domain.SetRecord
		if err := rows.Scan(&sessionID, &set.ExerciseID, &set.SetNumber, &set.Reps, &set.Load, &set.RestSec, &set.RPE, &set.Notes, &set.Tonnage); err != nil {
			return nil, err
		}
		out[sessionID] = append(out[sessionID], set)
	}
	return out, rows.Err()
}

// ExerciseSetRows fetches flat set rows for one exercise and user, joined
// with the owning session's date, newest sessions first. The limit caps rows,
// not sessions; callers group the window they get.
func (r *Repository) ExerciseSetRows(ctx context.Context, externalUserID, exerciseID string, limit int) ([]domain.ExerciseSetRow, error) {
	const query = `SELECT s.session_id, s.session_date, ss.exercise_id, ss.set_number, ss.reps, ss.load, ss.rest_sec, ss.rpe, ss.notes, ss.tonnage
        FROM session_sets ss
        JOIN sessions s ON s.session_id = ss.session_id
        WHERE s.external_user_id=$1 AND ss.exercise_id=$2
        ORDER BY s.session_date DESC, ss.set_id
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, externalUserID, exerciseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ExerciseSetRow, 0, limit)
	for rows.Next() {
		var row domain.ExerciseSetRow
		if err := rows.Scan(&row.SessionID, &row.Date, &row.Set.ExerciseID, &row.Set.SetNumber, &row.Set.Reps, &row.Set.Load, &row.Set.RestSec, &row.Set.RPE, &row.Set.Notes, &row.Set.Tonnage); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CreateExercise inserts a catalog entry.
func (r *Repository) CreateExercise(ctx context.Context, exercise domain.Exercise) error {
	const stmt = `INSERT INTO exercises (exercise_id, name, category, description, media_url, image_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := r.pool.Exec(ctx, stmt,
		exercise.ID,
		exercise.Name,
		exercise.Category,
		exercise.Description,
		exercise.MediaURL,
		exercise.ImageID,
		exercise.CreatedAt,
		exercise.UpdatedAt,
	)
	return err
}

// GetExercise retrieves a catalog entry by ID; nil when absent.
func (r *Repository) GetExercise(ctx context.Context, exerciseID string) (*domain.Exercise, error) {
	const query = `SELECT exercise_id, name, category, description, media_url, image_id, created_at, updated_at
        FROM exercises WHERE exercise_id=$1`

	row := r.pool.QueryRow(ctx, query, exerciseID)
	var exercise domain.Exercise
	if err := row.Scan(&exercise.ID, &exercise.Name, &exercise.Category, &exercise.Description, &exercise.MediaURL, &exercise.ImageID, &exercise.CreatedAt, &exercise.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &exercise, nil
}

// ListExercises returns the whole catalog ordered by name.
func (r *Repository) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	const query = `SELECT exercise_id, name, category, description, media_url, image_id, created_at, updated_at
        FROM exercises ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Exercise, 0)
	for rows.Next() {
		var exercise domain.Exercise
		if err := rows.Scan(&exercise.ID, &exercise.Name, &exercise.Category, &exercise.Description, &exercise.MediaURL, &exercise.ImageID, &exercise.CreatedAt, &exercise.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, exercise)
	}
	return out, rows.Err()
}

// UpdateExercise replaces mutable catalog fields.
func (r *Repository) UpdateExercise(ctx context.Context, exercise domain.Exercise) error {
	const stmt = `UPDATE exercises SET name=$2, category=$3, description=$4, media_url=$5, image_id=$6, updated_at=$7
        WHERE exercise_id=$1`

	_, err := r.pool.Exec(ctx, stmt,
		exercise.ID,
		exercise.Name,
		exercise.Category,
		exercise.Description,
		exercise.MediaURL,
		exercise.ImageID,
		exercise.UpdatedAt,
	)
	return err
}

// DeleteExercise removes a catalog entry.
func (r *Repository) DeleteExercise(ctx context.Context, exerciseID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exercises WHERE exercise_id=$1`, exerciseID)
	return err
}

// CreateWorkout inserts a workout template.
func (r *Repository) CreateWorkout(ctx context.Context, workout domain.Workout) error {
	const stmt = `INSERT INTO workouts (workout_id, name, description, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)`

	_, err := r.pool.Exec(ctx, stmt,
		workout.ID,
		workout.Name,
		workout.Description,
		workout.CreatedAt,
		workout.UpdatedAt,
	)
	return err
}

// GetWorkout retrieves a template by ID; nil when absent.
func (r *Repository) GetWorkout(ctx context.Context, workoutID string) (*domain.Workout, error) {
	const query = `SELECT workout_id, name, description, created_at, updated_at
        FROM workouts WHERE workout_id=$1`

	row := r.pool.QueryRow(ctx, query, workoutID)
	var workout domain.Workout
	if err := row.Scan(&workout.ID, &workout.Name, &workout.Description, &workout.CreatedAt, &workout.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &workout, nil
}

// ListWorkouts returns all templates ordered by name.
func (r *Repository) ListWorkouts(ctx context.Context) ([]domain.Workout, error) {
	const query = `SELECT workout_id, name, description, created_at, updated_at
        FROM workouts ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Workout, 0)
	for rows.Next() {
		var workout domain.Workout
		if err := rows.Scan(&workout.ID, &workout.Name, &workout.Description, &workout.CreatedAt, &workout.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, workout)
	}
	return out, rows.Err()
}

// UpdateWorkout replaces mutable template fields.
func (r *Repository) UpdateWorkout(ctx context.Context, workout domain.Workout) error {
	const stmt = `UPDATE workouts SET name=$2, description=$3, updated_at=$4 WHERE workout_id=$1`

	_, err := r.pool.Exec(ctx, stmt,
		workout.ID,
		workout.Name,
		workout.Description,
		workout.UpdatedAt,
	)
	return err
}

// DeleteWorkout removes a template.
func (r *Repository) DeleteWorkout(ctx context.Context, workoutID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM workouts WHERE workout_id=$1`, workoutID)
	return err
}
