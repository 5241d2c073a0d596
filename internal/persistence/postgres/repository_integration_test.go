//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/training/internal/domain"
)

func TestRepositorySessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	exerciseID := createTestExercise(t, ctx, repo, "Back Squat")

	now := time.Now().UTC().Truncate(time.Microsecond)
	rpe := 8.0
	session := domain.Session{
		ID:             uuid.NewString(),
		ExternalUserID: "user-1",
		Date:           now,
		DurationSec:    3600,
		Sets: []domain.SetRecord{
			{ExerciseID: exerciseID, Reps: 10, Load: 20, Tonnage: 200, RPE: &rpe},
			{ExerciseID: exerciseID, Reps: 8, Load: 25, Tonnage: 200},
		},
		CreatedAt: now,
	}

	require.NoError(t, repo.CreateSession(ctx, session))

	stored, err := repo.GetSessionForUser(ctx, session.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Sets, 2)
	require.Equal(t, float64(200), stored.Sets[0].Tonnage)
	require.NotNil(t, stored.Sets[0].RPE)
	require.Nil(t, stored.Sets[1].RPE)

	other, err := repo.GetSessionForUser(ctx, session.ID, "someone-else")
	require.NoError(t, err)
	require.Nil(t, other, "sessions must be scoped to their owner")
}

func TestRepositoryListSessionsKeysetPagination(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	exerciseID := createTestExercise(t, ctx, repo, "Deadlift")

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		session := domain.Session{
			ID:             uuid.NewString(),
			ExternalUserID: "user-2",
			Date:           base.Add(time.Duration(i) * 24 * time.Hour),
			DurationSec:    1800,
			Sets:           []domain.SetRecord{{ExerciseID: exerciseID, Reps: 5, Load: 100, Tonnage: 500}},
			CreatedAt:      base,
		}
		require.NoError(t, repo.CreateSession(ctx, session))
	}

	first, cursor, err := repo.ListSessionsByUser(ctx, "user-2", nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	require.True(t, first[0].Date.After(first[1].Date))

	rest, _, err := repo.ListSessionsByUser(ctx, "user-2", cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.True(t, first[1].Date.After(rest[0].Date))
}

func TestRepositoryExerciseSetRowsCapsRowsNotSessions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	exerciseID := createTestExercise(t, ctx, repo, "Bench Press")

	base := time.Now().UTC().Truncate(time.Microsecond)

	// Older session with two sets, newer session with three.
	older := domain.Session{
		ID:             uuid.NewString(),
		ExternalUserID: "user-3",
		Date:           base.Add(-48 * time.Hour),
		DurationSec:    1800,
		Sets: []domain.SetRecord{
			{ExerciseID: exerciseID, Reps: 10, Load: 60, Tonnage: 600},
			{ExerciseID: exerciseID, Reps: 10, Load: 60, Tonnage: 600},
		},
		CreatedAt: base,
	}
	newer := domain.Session{
		ID:             uuid.NewString(),
		ExternalUserID: "user-3",
		Date:           base,
		DurationSec:    1800,
		Sets: []domain.SetRecord{
			{ExerciseID: exerciseID, Reps: 8, Load: 70, Tonnage: 560},
			{ExerciseID: exerciseID, Reps: 8, Load: 70, Tonnage: 560},
			{ExerciseID: exerciseID, Reps: 6, Load: 75, Tonnage: 450},
		},
		CreatedAt: base,
	}
	require.NoError(t, repo.CreateSession(ctx, older))
	require.NoError(t, repo.CreateSession(ctx, newer))

	// A cap of 4 rows spends 3 on the newer session and only 1 on the older.
	rows, err := repo.ExerciseSetRows(ctx, "user-3", exerciseID, 4)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, newer.ID, rows[0].SessionID)
	require.Equal(t, newer.ID, rows[1].SessionID)
	require.Equal(t, newer.ID, rows[2].SessionID)
	require.Equal(t, older.ID, rows[3].SessionID)
}

func TestRepositoryGoalRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)
	goal := domain.Goal{
		ID:             uuid.NewString(),
		ExternalUserID: "user-1",
		Name:           "Achieve 20 pull-ups",
		Type:           domain.GoalTypeReps,
		TargetValue:    20,
		CurrentValue:   10,
		Progress:       50,
		Status:         domain.GoalStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, repo.CreateGoal(ctx, goal))

	stored, err := repo.GetGoalForUser(ctx, goal.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, float64(50), stored.Progress)

	other, err := repo.GetGoalForUser(ctx, goal.ID, "someone-else")
	require.NoError(t, err)
	require.Nil(t, other, "goals must be scoped to their owner")

	goal.CurrentValue = 20
	goal.Progress = 100
	goal.Status = domain.GoalStatusCompleted
	goal.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.UpdateGoal(ctx, goal))

	updated, err := repo.GetGoalForUser(ctx, goal.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.GoalStatusCompleted, updated.Status)
}

func TestRepositoryListCurrentPhasesWindow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	workoutID := createTestWorkout(t, ctx, repo, "Pull Day")

	openEnded := domain.TrainingPhase{
		ID: uuid.NewString(), ExternalUserID: "user-1", Name: "Open block",
		StartDate: yesterday, WorkoutIDs: []string{workoutID},
		CreatedAt: now, UpdatedAt: now,
	}
	ended := domain.TrainingPhase{
		ID: uuid.NewString(), ExternalUserID: "user-1", Name: "Finished block",
		StartDate: lastWeek, EndDate: &yesterday,
		CreatedAt: now, UpdatedAt: now,
	}
	upcoming := domain.TrainingPhase{
		ID: uuid.NewString(), ExternalUserID: "user-1", Name: "Next block",
		StartDate: tomorrow,
		CreatedAt: now, UpdatedAt: now,
	}
	for _, phase := range []domain.TrainingPhase{openEnded, ended, upcoming} {
		require.NoError(t, repo.CreatePhase(ctx, phase))
	}

	current, err := repo.ListCurrentPhases(ctx, "user-1", now)
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.Equal(t, openEnded.ID, current[0].ID)
	require.Equal(t, []string{workoutID}, current[0].WorkoutIDs)

	all, err := repo.ListPhasesByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, upcoming.ID, all[0].ID, "phases ordered by start date descending")
}

func TestRepositoryUpdatePhaseReplacesWorkoutLinks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)
	first := createTestWorkout(t, ctx, repo, "Push Day")
	second := createTestWorkout(t, ctx, repo, "Leg Day")

	phase := domain.TrainingPhase{
		ID: uuid.NewString(), ExternalUserID: "user-1", Name: "Hypertrophy block",
		StartDate: now, WorkoutIDs: []string{first},
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.CreatePhase(ctx, phase))

	phase.WorkoutIDs = []string{second}
	phase.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.UpdatePhase(ctx, phase))

	stored, err := repo.GetPhaseForUser(ctx, phase.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{second}, stored.WorkoutIDs)
}

func createTestWorkout(t *testing.T, ctx context.Context, repo *Repository, name string) string {
	t.Helper()
	now := time.Now().UTC()
	workout := domain.Workout{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateWorkout(ctx, workout))
	return workout.ID
}

func createTestExercise(t *testing.T, ctx context.Context, repo *Repository, name string) string {
	t.Helper()
	now := time.Now().UTC()
	exercise := domain.Exercise{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  "strength",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateExercise(ctx, exercise))
	return exercise.ID
}

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("training"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return NewRepository(pool)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
		"../../../db/postgres/migrations/0002_goals_phases.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
