package domain

import "time"

// Exercise is a catalog entry that set records reference.
type Exercise struct {
	ID          string
	Name        string
	Category    string
	Description *string
	MediaURL    *string
	ImageID     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Workout is a reusable session template. Sessions may reference the workout
// they were performed from.
type Workout struct {
	ID          string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
