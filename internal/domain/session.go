package domain

import "time"

// SetRecord is one performed set of one exercise within a session. Records are
// immutable once created; Tonnage is fixed at creation time (load times reps)
// and never recomputed independently of its set.
type SetRecord struct {
	ExerciseID string
	SetNumber  *int // nullable for rows created before set ordering existed
	Reps       int
	Load       float64
	RestSec    *int
	RPE        *float64
	Notes      *string
	Tonnage    float64
}

// Session is the canonical completed-training record stored in PostgreSQL.
// It is created with all of its set records in one transaction and never
// partially persisted.
type Session struct {
	ID              string
	ExternalUserID  string
	WorkoutID       *string
	GroupExternalID *string
	Date            time.Time
	DurationSec     int
	Notes           *string
	Sets            []SetRecord
	CreatedAt       time.Time
}

// SessionCompletedEvent is the derived, never-persisted summary of a completed
// session handed to in-process subscribers and the broker publisher. Totals
// are always recomputed from the set list at construction time so they cannot
// drift from the underlying sets.
type SessionCompletedEvent struct {
	SessionID       string
	ExternalUserID  string
	GroupExternalID *string
	WorkoutID       *string
	Date            time.Time
	DurationSec     int
	Notes           *string
	Sets            []SetRecord
	TotalTonnage    float64
	TotalVolume     int
	// AverageRPE is the mean over sets that carry an RPE, or nil when none do.
	AverageRPE *float64
}

// DeriveCompletedEvent assembles a SessionCompletedEvent from a persisted
// session and its exact set list. Pure: a well-formed session always yields a
// well-formed event.
func DeriveCompletedEvent(session Session, sets []SetRecord) SessionCompletedEvent {
	var totalTonnage float64
	var totalVolume int
	var rpeSum float64
	var rpeCount int

	for _, set := range sets {
		totalTonnage += set.Load * float64(set.Reps)
		totalVolume += set.Reps
		if set.RPE != nil {
			rpeSum += *set.RPE
			rpeCount++
		}
	}

	var averageRPE *float64
	if rpeCount > 0 {
		mean := rpeSum / float64(rpeCount)
		averageRPE = &mean
	}

	return SessionCompletedEvent{
		SessionID:       session.ID,
		ExternalUserID:  session.ExternalUserID,
		GroupExternalID: session.GroupExternalID,
		WorkoutID:       session.WorkoutID,
		Date:            session.Date,
		DurationSec:     session.DurationSec,
		Notes:           session.Notes,
		Sets:            sets,
		TotalTonnage:    totalTonnage,
		TotalVolume:     totalVolume,
		AverageRPE:      averageRPE,
	}
}
