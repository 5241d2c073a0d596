package domain

import "time"

// TrainingPhase is a user-owned block of time (e.g. a strength mesocycle)
// optionally linked to a goal and to the workout templates trained during the
// block. EndDate nil means the phase is open-ended.
type TrainingPhase struct {
	ID             string
	ExternalUserID string
	Name           string
	GoalID         *string
	StartDate      time.Time
	EndDate        *time.Time
	WorkoutIDs     []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Current reports whether the phase covers the given instant: started on or
// before it and either open-ended or not yet ended.
func (p TrainingPhase) Current(now time.Time) bool {
	if p.StartDate.After(now) {
		return false
	}
	return p.EndDate == nil || !p.EndDate.Before(now)
}
