package api

import (
	"fmt"
	"strings"
	"time"

	"example.com/training/internal/domain"
)

// CreateSessionRequest is the POST /v1/sessions payload.
type CreateSessionRequest struct {
	WorkoutID   *string      `json:"workout_id,omitempty"`
	Date        time.Time    `json:"date"`
	DurationSec int          `json:"duration_sec"`
	Notes       *string      `json:"notes,omitempty"`
	Sets        []SetRequest `json:"sets"`
}

// SetRequest is one performed set inside a session payload.
type SetRequest struct {
	ExerciseID string   `json:"exercise_id"`
	SetNumber  *int     `json:"set_number,omitempty"`
	Reps       int      `json:"reps"`
	Load       float64  `json:"load"`
	RestSec    *int     `json:"rest_sec,omitempty"`
	RPE        *float64 `json:"rpe,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// Validate enforces payload constraints before the request reaches the service.
func (r CreateSessionRequest) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if r.Date.After(time.Now().Add(24 * time.Hour)) {
		return fmt.Errorf("date cannot be more than 24h in the future")
	}
	if r.DurationSec < 60 || r.DurationSec > 86400 {
		return fmt.Errorf("duration_sec must be between 60 and 86400")
	}
	if len(r.Sets) == 0 {
		return fmt.Errorf("at least one set is required")
	}
	for i, set := range r.Sets {
		if err := set.validate(); err != nil {
			return fmt.Errorf("sets[%d]: %w", i, err)
		}
	}
	return nil
}

func (r SetRequest) validate() error {
	if strings.TrimSpace(r.ExerciseID) == "" {
		return fmt.Errorf("exercise_id is required")
	}
	if r.Reps < 0 || r.Reps > 500 {
		return fmt.Errorf("reps must be between 0 and 500")
	}
	if r.Load < 0 {
		return fmt.Errorf("load cannot be negative")
	}
	if r.RPE != nil && (*r.RPE < 1 || *r.RPE > 10) {
		return fmt.Errorf("rpe must be between 1 and 10")
	}
	return nil
}

// ExerciseRequest is the create/update payload for catalog entries.
type ExerciseRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description *string `json:"description,omitempty"`
	MediaURL    *string `json:"media_url,omitempty"`
	ImageID     *string `json:"image_id,omitempty"`
}

// Validate enforces payload constraints for exercises.
func (r ExerciseRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("category is required")
	}
	return nil
}

func (r ExerciseRequest) toInput() domain.CreateExerciseInput {
	return domain.CreateExerciseInput{
		Name:        r.Name,
		Category:    r.Category,
		Description: r.Description,
		MediaURL:    r.MediaURL,
		ImageID:     r.ImageID,
	}
}

// WorkoutRequest is the create/update payload for workout templates.
type WorkoutRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Validate enforces payload constraints for workouts.
func (r WorkoutRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// SetView renders a set record.
type SetView struct {
	ExerciseID string   `json:"exercise_id"`
	SetNumber  *int     `json:"set_number,omitempty"`
	Reps       int      `json:"reps"`
	Load       float64  `json:"load"`
	RestSec    *int     `json:"rest_sec,omitempty"`
	RPE        *float64 `json:"rpe,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
	Tonnage    float64  `json:"tonnage"`
}

// SessionView renders a session with its sets.
type SessionView struct {
	ID          string    `json:"id"`
	WorkoutID   *string   `json:"workout_id,omitempty"`
	Date        time.Time `json:"date"`
	DurationSec int       `json:"duration_sec"`
	Notes       *string   `json:"notes,omitempty"`
	Sets        []SetView `json:"sets"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListSessionsResponse wraps a page of sessions with the next cursor token.
type ListSessionsResponse struct {
	Items      []SessionView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ExerciseView renders a catalog entry.
type ExerciseView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description *string   `json:"description,omitempty"`
	MediaURL    *string   `json:"media_url,omitempty"`
	ImageID     *string   `json:"image_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkoutView renders a workout template.
type WorkoutView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProgressGroupView renders one session's sets for the queried exercise.
type ProgressGroupView struct {
	SessionID string    `json:"session_id"`
	Date      time.Time `json:"date"`
	Sets      []SetView `json:"sets"`
}

// ProgressAggregatesView renders the rolling totals of the progress window.
type ProgressAggregatesView struct {
	TotalSessions int     `json:"total_sessions"`
	TotalVolume   int     `json:"total_volume"`
	TotalTonnage  float64 `json:"total_tonnage"`
	AverageLoad   float64 `json:"average_load"`
	AverageRPE    float64 `json:"average_rpe"`
	MaxLoad       float64 `json:"max_load"`
	MaxReps       int     `json:"max_reps"`
}

// ProgressResponse is the progress endpoint payload. Exercise is omitted when
// the exercise has no history for the user.
type ProgressResponse struct {
	Exercise   *ExerciseView          `json:"exercise,omitempty"`
	History    []ProgressGroupView    `json:"history"`
	Aggregates ProgressAggregatesView `json:"aggregates"`
}

func toSetView(set domain.SetRecord) SetView {
	return SetView{
		ExerciseID: set.ExerciseID,
		SetNumber:  set.SetNumber,
		Reps:       set.Reps,
		Load:       set.Load,
		RestSec:    set.RestSec,
		RPE:        set.RPE,
		Notes:      set.Notes,
		Tonnage:    set.Tonnage,
	}
}

func toSessionView(session domain.Session) SessionView {
	sets := make([]SetView, 0, len(session.Sets))
	for _, set := range session.Sets {
		sets = append(sets, toSetView(set))
	}
	return SessionView{
		ID:          session.ID,
		WorkoutID:   session.WorkoutID,
		Date:        session.Date,
		DurationSec: session.DurationSec,
		Notes:       session.Notes,
		Sets:        sets,
		CreatedAt:   session.CreatedAt,
	}
}

func toExerciseView(exercise domain.Exercise) ExerciseView {
	return ExerciseView{
		ID:          exercise.ID,
		Name:        exercise.Name,
		Category:    exercise.Category,
		Description: exercise.Description,
		MediaURL:    exercise.MediaURL,
		ImageID:     exercise.ImageID,
		CreatedAt:   exercise.CreatedAt,
		UpdatedAt:   exercise.UpdatedAt,
	}
}

func toWorkoutView(workout domain.Workout) WorkoutView {
	return WorkoutView{
		ID:          workout.ID,
		Name:        workout.Name,
		Description: workout.Description,
		CreatedAt:   workout.CreatedAt,
		UpdatedAt:   workout.UpdatedAt,
	}
}

func toProgressResponse(progress *domain.ExerciseProgress) ProgressResponse {
	history := make([]ProgressGroupView, 0, len(progress.History))
	for _, group := range progress.History {
		sets := make([]SetView, 0, len(group.Sets))
		for _, set := range group.Sets {
			sets = append(sets, toSetView(set))
		}
		history = append(history, ProgressGroupView{
			SessionID: group.SessionID,
			Date:      group.Date,
			Sets:      sets,
		})
	}

	resp := ProgressResponse{
		History: history,
		Aggregates: ProgressAggregatesView{
			TotalSessions: progress.Aggregates.TotalSessions,
			TotalVolume:   progress.Aggregates.TotalVolume,
			TotalTonnage:  progress.Aggregates.TotalTonnage,
			AverageLoad:   progress.Aggregates.AverageLoad,
			AverageRPE:    progress.Aggregates.AverageRPE,
			MaxLoad:       progress.Aggregates.MaxLoad,
			MaxReps:       progress.Aggregates.MaxReps,
		},
	}
	if progress.Exercise != nil {
		view := toExerciseView(*progress.Exercise)
		resp.Exercise = &view
	}
	return resp
}
