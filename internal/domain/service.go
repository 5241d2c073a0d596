// Package domain defines the business logic for the training service.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session cannot be located for the user.
	ErrSessionNotFound = errors.New("session not found")
	// ErrExerciseNotFound is returned when an exercise cannot be located.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrWorkoutNotFound is returned when a workout cannot be located.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrNoSets rejects sessions created without at least one set record.
	ErrNoSets = errors.New("session requires at least one set record")
	// ErrGoalNotFound is returned when a goal cannot be located for the user.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrPhaseNotFound is returned when a training phase cannot be located for the user.
	ErrPhaseNotFound = errors.New("training phase not found")
	// ErrPhaseGoalNotOwned rejects phases referencing a goal the user does not own.
	ErrPhaseGoalNotOwned = errors.New("phase goal not found for user")
	// ErrPhaseWorkoutMissing rejects phases referencing an unknown workout.
	ErrPhaseWorkoutMissing = errors.New("one or more phase workouts not found")
)

// DefaultProgressRowLimit caps the number of flat set rows fetched for the
// progress projection. The cap bounds rows, not sessions; a recent session
// with many sets can consume the whole window.
const DefaultProgressRowLimit = 50

// SessionRepository captures persistence operations for sessions and their sets.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSessionForUser(ctx context.Context, sessionID, externalUserID string) (*Session, error)
	ListSessionsByUser(ctx context.Context, externalUserID string, cursor *Cursor, limit int) ([]Session, *Cursor, error)
	ExerciseSetRows(ctx context.Context, externalUserID, exerciseID string, limit int) ([]ExerciseSetRow, error)
}

// ExerciseRepository captures persistence operations for the exercise catalog.
type ExerciseRepository interface {
	CreateExercise(ctx context.Context, exercise Exercise) error
	GetExercise(ctx context.Context, exerciseID string) (*Exercise, error)
	ListExercises(ctx context.Context) ([]Exercise, error)
	UpdateExercise(ctx context.Context, exercise Exercise) error
	DeleteExercise(ctx context.Context, exerciseID string) error
}

// WorkoutRepository captures persistence operations for workout templates.
type WorkoutRepository interface {
	CreateWorkout(ctx context.Context, workout Workout) error
	GetWorkout(ctx context.Context, workoutID string) (*Workout, error)
	ListWorkouts(ctx context.Context) ([]Workout, error)
	UpdateWorkout(ctx context.Context, workout Workout) error
	DeleteWorkout(ctx context.Context, workoutID string) error
}

// GoalRepository captures persistence operations for user goals.
type GoalRepository interface {
	CreateGoal(ctx context.Context, goal Goal) error
	GetGoalForUser(ctx context.Context, goalID, externalUserID string) (*Goal, error)
	ListGoalsByUser(ctx context.Context, externalUserID string) ([]Goal, error)
	UpdateGoal(ctx context.Context, goal Goal) error
	DeleteGoal(ctx context.Context, goalID string) error
}

// PhaseRepository captures persistence operations for training phases.
type PhaseRepository interface {
	CreatePhase(ctx context.Context, phase TrainingPhase) error
	GetPhaseForUser(ctx context.Context, phaseID, externalUserID string) (*TrainingPhase, error)
	ListPhasesByUser(ctx context.Context, externalUserID string) ([]TrainingPhase, error)
	ListCurrentPhases(ctx context.Context, externalUserID string, now time.Time) ([]TrainingPhase, error)
	UpdatePhase(ctx context.Context, phase TrainingPhase) error
	DeletePhase(ctx context.Context, phaseID string) error
}

// Repository bundles the stores the service depends on.
type Repository interface {
	SessionRepository
	ExerciseRepository
	WorkoutRepository
	GoalRepository
	PhaseRepository
}

// CompletedEventSink receives the derived event synchronously on the writing
// goroutine. Implementations must isolate their subscribers' failures; Emit
// never reports an error back to the write path.
type CompletedEventSink interface {
	EmitSessionCompleted(ctx context.Context, event SessionCompletedEvent)
}

// CompletedEventPublisher hands the derived event to the message broker.
// PublishSessionCompletedAsync is fire-and-forget: the write path does not
// wait on delivery and broker failures are only ever logged.
type CompletedEventPublisher interface {
	PublishSessionCompletedAsync(event SessionCompletedEvent)
}

// Service orchestrates training workflows.
type Service struct {
	repo      Repository
	emitter   CompletedEventSink
	publisher CompletedEventPublisher
}

// NewService constructs a Service.
func NewService(repo Repository, emitter CompletedEventSink, publisher CompletedEventPublisher) *Service {
	return &Service{repo: repo, emitter: emitter, publisher: publisher}
}

// CreateSetInput captures one set record from the API layer.
type CreateSetInput struct {
	ExerciseID string
	SetNumber  *int
	Reps       int
	Load       float64
	RestSec    *int
	RPE        *float64
	Notes      *string
}

// CreateSessionInput captures the payload from the API layer.
type CreateSessionInput struct {
	ExternalUserID  string
	WorkoutID       *string
	GroupExternalID *string
	Date            time.Time
	DurationSec     int
	Notes           *string
	Sets            []CreateSetInput
}

// Cursor models the keyset pagination token for session listings.
type Cursor struct {
	Date time.Time
	ID   string
}

// CreateSession persists the session with all of its sets in one transaction,
// then fans the derived event out to in-process subscribers and the broker.
// Broker unavailability never fails the write: the publish is detached and
// its outcome observed only by the log sink.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	if len(input.Sets) == 0 {
		return nil, ErrNoSets
	}

	sets := make([]SetRecord, 0, len(input.Sets))
	for _, in := range input.Sets {
		sets = append(sets, SetRecord{
			ExerciseID: in.ExerciseID,
			SetNumber:  in.SetNumber,
			Reps:       in.Reps,
			Load:       in.Load,
			RestSec:    in.RestSec,
			RPE:        in.RPE,
			Notes:      in.Notes,
			Tonnage:    in.Load * float64(in.Reps),
		})
	}

	session := Session{
		ID:              uuid.NewString(),
		ExternalUserID:  input.ExternalUserID,
		WorkoutID:       input.WorkoutID,
		GroupExternalID: input.GroupExternalID,
		Date:            input.Date.UTC(),
		DurationSec:     input.DurationSec,
		Notes:           input.Notes,
		Sets:            sets,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	event := DeriveCompletedEvent(session, session.Sets)
	s.emitter.EmitSessionCompleted(ctx, event)
	s.publisher.PublishSessionCompletedAsync(event)

	return &session, nil
}

// GetSession fetches a session owned by the user.
func (s *Service) GetSession(ctx context.Context, sessionID, externalUserID string) (*Session, error) {
	session, err := s.repo.GetSessionForUser(ctx, sessionID, externalUserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ListSessionsByUser fetches sessions with keyset pagination, date descending.
func (s *Service) ListSessionsByUser(ctx context.Context, externalUserID string, cursor *Cursor, limit int) ([]Session, *Cursor, error) {
	return s.repo.ListSessionsByUser(ctx, externalUserID, cursor, limit)
}

// GetExerciseProgress reconstructs per-exercise history for one user. The
// limit caps fetched rows (default 50); grouping and aggregation happen over
// whatever rows that window yields. An exercise with no history returns an
// empty projection with Exercise unset, never an error.
func (s *Service) GetExerciseProgress(ctx context.Context, externalUserID, exerciseID string, limit int) (*ExerciseProgress, error) {
	if limit <= 0 {
		limit = DefaultProgressRowLimit
	}

	rows, err := s.repo.ExerciseSetRows(ctx, externalUserID, exerciseID, limit)
	if err != nil {
		return nil, err
	}

	history, aggregates := BuildExerciseProgress(rows)

	progress := &ExerciseProgress{
		History:    history,
		Aggregates: aggregates,
	}
	if len(rows) > 0 {
		exercise, err := s.repo.GetExercise(ctx, exerciseID)
		if err != nil {
			return nil, err
		}
		progress.Exercise = exercise
	}
	return progress, nil
}

// CreateExerciseInput captures the exercise payload from the API layer.
type CreateExerciseInput struct {
	Name        string
	Category    string
	Description *string
	MediaURL    *string
	ImageID     *string
}

// CreateExercise adds a catalog entry.
func (s *Service) CreateExercise(ctx context.Context, input CreateExerciseInput) (*Exercise, error) {
	now := time.Now().UTC()
	exercise := Exercise{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		MediaURL:    input.MediaURL,
		ImageID:     input.ImageID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateExercise(ctx, exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

// GetExercise fetches a catalog entry by ID.
func (s *Service) GetExercise(ctx context.Context, exerciseID string) (*Exercise, error) {
	exercise, err := s.repo.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

// ListExercises returns the whole catalog.
func (s *Service) ListExercises(ctx context.Context) ([]Exercise, error) {
	return s.repo.ListExercises(ctx)
}

// UpdateExercise replaces mutable catalog fields.
func (s *Service) UpdateExercise(ctx context.Context, exerciseID string, input CreateExerciseInput) (*Exercise, error) {
	existing, err := s.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Category = input.Category
	existing.Description = input.Description
	existing.MediaURL = input.MediaURL
	existing.ImageID = input.ImageID
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateExercise(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteExercise removes a catalog entry.
func (s *Service) DeleteExercise(ctx context.Context, exerciseID string) error {
	if _, err := s.GetExercise(ctx, exerciseID); err != nil {
		return err
	}
	return s.repo.DeleteExercise(ctx, exerciseID)
}

// CreateWorkoutInput captures the workout payload from the API layer.
type CreateWorkoutInput struct {
	Name        string
	Description *string
}

// CreateWorkout adds a workout template.
func (s *Service) CreateWorkout(ctx context.Context, input CreateWorkoutInput) (*Workout, error) {
	now := time.Now().UTC()
	workout := Workout{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateWorkout(ctx, workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

// GetWorkout fetches a template by ID.
func (s *Service) GetWorkout(ctx context.Context, workoutID string) (*Workout, error) {
	workout, err := s.repo.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if workout == nil {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

// ListWorkouts returns all templates.
func (s *Service) ListWorkouts(ctx context.Context) ([]Workout, error) {
	return s.repo.ListWorkouts(ctx)
}

// UpdateWorkout replaces mutable template fields.
func (s *Service) UpdateWorkout(ctx context.Context, workoutID string, input CreateWorkoutInput) (*Workout, error) {
	existing, err := s.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Description = input.Description
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateWorkout(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteWorkout removes a template.
func (s *Service) DeleteWorkout(ctx context.Context, workoutID string) error {
	if _, err := s.GetWorkout(ctx, workoutID); err != nil {
		return err
	}
	return s.repo.DeleteWorkout(ctx, workoutID)
}

// CreateGoalInput captures the goal payload from the API layer.
type CreateGoalInput struct {
	ExternalUserID string
	Name           string
	Type           string
	TargetValue    float64
	CurrentValue   float64
}

// UpdateGoalInput carries partial goal updates; nil fields keep the stored value.
type UpdateGoalInput struct {
	Name         *string
	TargetValue  *float64
	CurrentValue *float64
	Status       *string
}

// CreateGoal adds an active goal with its progress derived from the initial values.
func (s *Service) CreateGoal(ctx context.Context, input CreateGoalInput) (*Goal, error) {
	now := time.Now().UTC()
	goal := Goal{
		ID:             uuid.NewString(),
		ExternalUserID: input.ExternalUserID,
		Name:           input.Name,
		Type:           input.Type,
		TargetValue:    input.TargetValue,
		CurrentValue:   input.CurrentValue,
		Progress:       GoalProgress(input.CurrentValue, input.TargetValue),
		Status:         GoalStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateGoal(ctx, goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// GetGoal fetches a goal owned by the user.
func (s *Service) GetGoal(ctx context.Context, goalID, externalUserID string) (*Goal, error) {
	goal, err := s.repo.GetGoalForUser(ctx, goalID, externalUserID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, ErrGoalNotFound
	}
	return goal, nil
}

// ListGoalsByUser returns the user's goals, newest first.
func (s *Service) ListGoalsByUser(ctx context.Context, externalUserID string) ([]Goal, error) {
	return s.repo.ListGoalsByUser(ctx, externalUserID)
}

// UpdateGoal merges the partial update, recomputes progress from the merged
// values and applies the auto-completion rule. An explicit status in the
// update is still subject to that rule: setting an at-target goal to active
// completes it.
func (s *Service) UpdateGoal(ctx context.Context, goalID, externalUserID string, input UpdateGoalInput) (*Goal, error) {
	existing, err := s.GetGoal(ctx, goalID, externalUserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		existing.Name = *input.Name
	}
	if input.TargetValue != nil {
		existing.TargetValue = *input.TargetValue
	}
	if input.CurrentValue != nil {
		existing.CurrentValue = *input.CurrentValue
	}
	if input.Status != nil {
		existing.Status = *input.Status
	}
	existing.Progress = GoalProgress(existing.CurrentValue, existing.TargetValue)
	existing.Status = advanceGoalStatus(existing.Status, existing.Progress)
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateGoal(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// UpdateGoalProgress records a new current value, recomputing progress and
// auto-completing an active goal that reached its target.
func (s *Service) UpdateGoalProgress(ctx context.Context, goalID, externalUserID string, currentValue float64) (*Goal, error) {
	goal, err := s.GetGoal(ctx, goalID, externalUserID)
	if err != nil {
		return nil, err
	}

	goal.CurrentValue = currentValue
	goal.Progress = GoalProgress(currentValue, goal.TargetValue)
	goal.Status = advanceGoalStatus(goal.Status, goal.Progress)
	goal.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateGoal(ctx, *goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal removes a goal owned by the user.
func (s *Service) DeleteGoal(ctx context.Context, goalID, externalUserID string) error {
	if _, err := s.GetGoal(ctx, goalID, externalUserID); err != nil {
		return err
	}
	return s.repo.DeleteGoal(ctx, goalID)
}

// CreatePhaseInput captures the training-phase payload from the API layer.
type CreatePhaseInput struct {
	ExternalUserID string
	Name           string
	GoalID         *string
	StartDate      time.Time
	EndDate        *time.Time
	WorkoutIDs     []string
}

// UpdatePhaseInput carries partial phase updates; nil fields keep the stored
// value. A nil WorkoutIDs keeps the existing association, an empty slice
// clears it.
type UpdatePhaseInput struct {
	Name       *string
	GoalID     *string
	StartDate  *time.Time
	EndDate    *time.Time
	WorkoutIDs []string
}

// CreatePhase adds a training phase after validating that a referenced goal
// is owned by the user and that every associated workout exists.
func (s *Service) CreatePhase(ctx context.Context, input CreatePhaseInput) (*TrainingPhase, error) {
	if err := s.checkPhaseRefs(ctx, input.ExternalUserID, input.GoalID, input.WorkoutIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	phase := TrainingPhase{
		ID:             uuid.NewString(),
		ExternalUserID: input.ExternalUserID,
		Name:           input.Name,
		GoalID:         input.GoalID,
		StartDate:      input.StartDate.UTC(),
		EndDate:        input.EndDate,
		WorkoutIDs:     input.WorkoutIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreatePhase(ctx, phase); err != nil {
		return nil, err
	}
	return &phase, nil
}

// GetPhase fetches a training phase owned by the user.
func (s *Service) GetPhase(ctx context.Context, phaseID, externalUserID string) (*TrainingPhase, error) {
	phase, err := s.repo.GetPhaseForUser(ctx, phaseID, externalUserID)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, ErrPhaseNotFound
	}
	return phase, nil
}

// ListPhasesByUser returns the user's phases, most recent start first.
func (s *Service) ListPhasesByUser(ctx context.Context, externalUserID string) ([]TrainingPhase, error) {
	return s.repo.ListPhasesByUser(ctx, externalUserID)
}

// ListCurrentPhases returns phases covering the present moment: started and
// either open-ended or not yet ended.
func (s *Service) ListCurrentPhases(ctx context.Context, externalUserID string) ([]TrainingPhase, error) {
	return s.repo.ListCurrentPhases(ctx, externalUserID, time.Now().UTC())
}

// UpdatePhase merges the partial update, re-validating goal ownership and
// workout existence for the merged references.
func (s *Service) UpdatePhase(ctx context.Context, phaseID, externalUserID string, input UpdatePhaseInput) (*TrainingPhase, error) {
	existing, err := s.GetPhase(ctx, phaseID, externalUserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		existing.Name = *input.Name
	}
	if input.GoalID != nil {
		existing.GoalID = input.GoalID
	}
	if input.StartDate != nil {
		existing.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		existing.EndDate = input.EndDate
	}
	if input.WorkoutIDs != nil {
		existing.WorkoutIDs = input.WorkoutIDs
	}

	if err := s.checkPhaseRefs(ctx, externalUserID, existing.GoalID, existing.WorkoutIDs); err != nil {
		return nil, err
	}

	existing.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdatePhase(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeletePhase removes a training phase owned by the user.
func (s *Service) DeletePhase(ctx context.Context, phaseID, externalUserID string) error {
	if _, err := s.GetPhase(ctx, phaseID, externalUserID); err != nil {
		return err
	}
	return s.repo.DeletePhase(ctx, phaseID)
}

func (s *Service) checkPhaseRefs(ctx context.Context, externalUserID string, goalID *string, workoutIDs []string) error {
	if goalID != nil {
		goal, err := s.repo.GetGoalForUser(ctx, *goalID, externalUserID)
		if err != nil {
			return err
		}
		if goal == nil {
			return ErrPhaseGoalNotOwned
		}
	}
	for _, workoutID := range workoutIDs {
		workout, err := s.repo.GetWorkout(ctx, workoutID)
		if err != nil {
			return err
		}
		if workout == nil {
			return ErrPhaseWorkoutMissing
		}
	}
	return nil
}
