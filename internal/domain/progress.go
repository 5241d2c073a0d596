package domain

import (
	"sort"
	"time"
)

// ExerciseSetRow is one flat row from the progress query: a set record joined
// with its owning session's id and date.
type ExerciseSetRow struct {
	SessionID string
	Date      time.Time
	Set       SetRecord
}

// ProgressHistoryGroup collects one session's sets for the queried exercise.
type ProgressHistoryGroup struct {
	SessionID string
	Date      time.Time
	Sets      []SetRecord
}

// ProgressAggregates are rolling totals computed over the flat row set, not
// over the grouped history.
type ProgressAggregates struct {
	TotalSessions int
	TotalVolume   int
	TotalTonnage  float64
	AverageLoad   float64
	// AverageRPE is the mean over rows carrying an RPE, or 0 when none do.
	// This intentionally differs from SessionCompletedEvent.AverageRPE, which
	// is nil in the same situation; existing consumers rely on both shapes.
	AverageRPE float64
	MaxLoad    float64
	MaxReps    int
}

// ExerciseProgress is the read-only projection returned to the progress
// endpoint. Exercise is nil when the exercise has no history.
type ExerciseProgress struct {
	Exercise   *Exercise
	History    []ProgressHistoryGroup
	Aggregates ProgressAggregates
}

// BuildExerciseProgress groups flat set rows into per-session history and
// computes aggregates. Rows are expected in session-date-descending fetch
// order; group ordering is stable so ties keep that order.
func BuildExerciseProgress(rows []ExerciseSetRow) ([]ProgressHistoryGroup, ProgressAggregates) {
	groupIndex := make(map[string]int, len(rows))
	groups := make([]ProgressHistoryGroup, 0, len(rows))

	for _, row := range rows {
		idx, ok := groupIndex[row.SessionID]
		if !ok {
			idx = len(groups)
			groupIndex[row.SessionID] = idx
			groups = append(groups, ProgressHistoryGroup{
				SessionID: row.SessionID,
				Date:      row.Date,
			})
		}
		groups[idx].Sets = append(groups[idx].Sets, row.Set)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date)
	})

	return groups, aggregateRows(rows, len(groups))
}

func aggregateRows(rows []ExerciseSetRow, totalSessions int) ProgressAggregates {
	agg := ProgressAggregates{TotalSessions: totalSessions}
	if len(rows) == 0 {
		return agg
	}

	var loadSum float64
	var rpeSum float64
	var rpeCount int

	for _, row := range rows {
		set := row.Set
		agg.TotalVolume += set.Reps
		agg.TotalTonnage += set.Tonnage
		loadSum += set.Load
		if set.RPE != nil {
			rpeSum += *set.RPE
			rpeCount++
		}
		if set.Load > agg.MaxLoad {
			agg.MaxLoad = set.Load
		}
		if set.Reps > agg.MaxReps {
			agg.MaxReps = set.Reps
		}
	}

	agg.AverageLoad = loadSum / float64(len(rows))
	if rpeCount > 0 {
		agg.AverageRPE = rpeSum / float64(rpeCount)
	}
	return agg
}
