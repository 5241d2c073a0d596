package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	createdSession *Session
	createErr      error
	setRows        []ExerciseSetRow
	exercise       *Exercise
	goal           *Goal
	updatedGoal    *Goal
	workout        *Workout
	createdPhase   *TrainingPhase
	updatedPhase   *TrainingPhase
}

func (r *stubRepo) CreateSession(_ context.Context, session Session) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.createdSession = &session
	return nil
}

func (r *stubRepo) GetSessionForUser(context.Context, string, string) (*Session, error) {
	return nil, nil
}

func (r *stubRepo) ListSessionsByUser(context.Context, string, *Cursor, int) ([]Session, *Cursor, error) {
	return nil, nil, nil
}

func (r *stubRepo) ExerciseSetRows(context.Context, string, string, int) ([]ExerciseSetRow, error) {
	return r.setRows, nil
}

func (r *stubRepo) CreateExercise(context.Context, Exercise) error { return nil }
func (r *stubRepo) GetExercise(context.Context, string) (*Exercise, error) {
	return r.exercise, nil
}
func (r *stubRepo) ListExercises(context.Context) ([]Exercise, error) { return nil, nil }
func (r *stubRepo) UpdateExercise(context.Context, Exercise) error    { return nil }
func (r *stubRepo) DeleteExercise(context.Context, string) error      { return nil }
func (r *stubRepo) CreateWorkout(context.Context, Workout) error { return nil }
func (r *stubRepo) GetWorkout(context.Context, string) (*Workout, error) {
	return r.workout, nil
}
func (r *stubRepo) ListWorkouts(context.Context) ([]Workout, error) { return nil, nil }
func (r *stubRepo) UpdateWorkout(context.Context, Workout) error    { return nil }
func (r *stubRepo) DeleteWorkout(context.Context, string) error     { return nil }

func (r *stubRepo) CreateGoal(context.Context, Goal) error { return nil }
func (r *stubRepo) GetGoalForUser(context.Context, string, string) (*Goal, error) {
	return r.goal, nil
}
func (r *stubRepo) ListGoalsByUser(context.Context, string) ([]Goal, error) { return nil, nil }
func (r *stubRepo) UpdateGoal(_ context.Context, goal Goal) error {
	r.updatedGoal = &goal
	return nil
}
func (r *stubRepo) DeleteGoal(context.Context, string) error { return nil }

func (r *stubRepo) CreatePhase(_ context.Context, phase TrainingPhase) error {
	r.createdPhase = &phase
	return nil
}
func (r *stubRepo) GetPhaseForUser(context.Context, string, string) (*TrainingPhase, error) {
	return nil, nil
}
func (r *stubRepo) ListPhasesByUser(context.Context, string) ([]TrainingPhase, error) {
	return nil, nil
}
func (r *stubRepo) ListCurrentPhases(context.Context, string, time.Time) ([]TrainingPhase, error) {
	return nil, nil
}
func (r *stubRepo) UpdatePhase(_ context.Context, phase TrainingPhase) error {
	r.updatedPhase = &phase
	return nil
}
func (r *stubRepo) DeletePhase(context.Context, string) error { return nil }

type stubEmitter struct {
	events []SessionCompletedEvent
}

func (e *stubEmitter) EmitSessionCompleted(_ context.Context, event SessionCompletedEvent) {
	e.events = append(e.events, event)
}

type stubPublisher struct {
	events []SessionCompletedEvent
}

func (p *stubPublisher) PublishSessionCompletedAsync(event SessionCompletedEvent) {
	p.events = append(p.events, event)
}

func TestCreateSessionDerivesAndFansOut(t *testing.T) {
	repo := &stubRepo{}
	emitter := &stubEmitter{}
	publisher := &stubPublisher{}
	service := NewService(repo, emitter, publisher)

	created, err := service.CreateSession(context.Background(), CreateSessionInput{
		ExternalUserID: "user-1",
		Date:           time.Date(2026, time.April, 3, 18, 0, 0, 0, time.UTC),
		DurationSec:    3600,
		Sets: []CreateSetInput{
			{ExerciseID: "ex-1", Reps: 10, Load: 20, RPE: floatPtr(8)},
			{ExerciseID: "ex-1", Reps: 8, Load: 25, RPE: floatPtr(6)},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.createdSession)
	require.NotEmpty(t, created.ID)

	// Tonnage is fixed per set at creation time.
	require.Equal(t, float64(200), created.Sets[0].Tonnage)
	require.Equal(t, float64(200), created.Sets[1].Tonnage)

	require.Len(t, emitter.events, 1)
	require.Len(t, publisher.events, 1)

	event := emitter.events[0]
	require.Equal(t, created.ID, event.SessionID)
	require.Equal(t, float64(400), event.TotalTonnage)
	require.Equal(t, 18, event.TotalVolume)
	require.NotNil(t, event.AverageRPE)
	require.Equal(t, float64(7), *event.AverageRPE)
	require.Equal(t, event, publisher.events[0])
}

func TestCreateSessionRequiresSets(t *testing.T) {
	service := NewService(&stubRepo{}, &stubEmitter{}, &stubPublisher{})

	_, err := service.CreateSession(context.Background(), CreateSessionInput{
		ExternalUserID: "user-1",
		Date:           time.Now(),
		DurationSec:    1800,
	})
	require.ErrorIs(t, err, ErrNoSets)
}

func TestCreateSessionRepositoryFailureSkipsFanOut(t *testing.T) {
	repo := &stubRepo{createErr: context.DeadlineExceeded}
	emitter := &stubEmitter{}
	publisher := &stubPublisher{}
	service := NewService(repo, emitter, publisher)

	_, err := service.CreateSession(context.Background(), CreateSessionInput{
		ExternalUserID: "user-1",
		Date:           time.Now(),
		DurationSec:    1800,
		Sets:           []CreateSetInput{{ExerciseID: "ex-1", Reps: 5, Load: 60}},
	})
	require.Error(t, err)
	require.Empty(t, emitter.events)
	require.Empty(t, publisher.events)
}

func TestGetExerciseProgressEmptyHistoryLeavesExerciseUnset(t *testing.T) {
	repo := &stubRepo{exercise: &Exercise{ID: "ex-1", Name: "Back Squat"}}
	service := NewService(repo, &stubEmitter{}, &stubPublisher{})

	progress, err := service.GetExerciseProgress(context.Background(), "user-1", "ex-1", 0)
	require.NoError(t, err)
	require.Nil(t, progress.Exercise)
	require.Empty(t, progress.History)
	require.Equal(t, ProgressAggregates{}, progress.Aggregates)
}

func TestGetExerciseProgressAttachesExercise(t *testing.T) {
	date := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		exercise: &Exercise{ID: "ex-1", Name: "Back Squat", Category: "legs"},
		setRows: []ExerciseSetRow{
			{SessionID: "sess-1", Date: date, Set: SetRecord{Reps: 5, Load: 100, Tonnage: 500}},
		},
	}
	service := NewService(repo, &stubEmitter{}, &stubPublisher{})

	progress, err := service.GetExerciseProgress(context.Background(), "user-1", "ex-1", 0)
	require.NoError(t, err)
	require.NotNil(t, progress.Exercise)
	require.Equal(t, "Back Squat", progress.Exercise.Name)
	require.Len(t, progress.History, 1)
	require.Equal(t, 1, progress.Aggregates.TotalSessions)
}
