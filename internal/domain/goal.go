package domain

import "time"

// Goal types.
const (
	GoalTypeReps  = "reps"
	GoalTypeLoad  = "load"
	GoalTypeTime  = "time"
	GoalTypeSkill = "skill"
)

// Goal statuses. A goal auto-transitions from active to completed when its
// progress reaches 100; every other status is set explicitly by the user.
const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusPaused    = "paused"
	GoalStatusAbandoned = "abandoned"
)

// Goal is a user-owned target (e.g. "20 pull-ups") tracked toward a numeric
// value. Progress is a derived percentage stored alongside the values so
// listings never recompute it.
type Goal struct {
	ID             string
	ExternalUserID string
	Name           string
	Type           string
	TargetValue    float64
	CurrentValue   float64
	Progress       float64
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GoalProgress returns the percentage of target reached, clamped to [0, 100].
// A non-positive target always yields 0.
func GoalProgress(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	percentage := (current / target) * 100
	if percentage < 0 {
		return 0
	}
	if percentage > 100 {
		return 100
	}
	return percentage
}

// advanceGoalStatus applies the auto-completion rule: an active goal whose
// progress reached 100 becomes completed. Paused and abandoned goals never
// transition on their own.
func advanceGoalStatus(status string, progress float64) string {
	if progress >= 100 && status == GoalStatusActive {
		return GoalStatusCompleted
	}
	return status
}
