package workflow

import (
	"time"

	"clipbook/internal/detect"
)

// JobState is the lifecycle phase of a submitted conversion.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether no further transitions happen.
func (s JobState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Job is the externally visible record of one conversion.
type Job struct {
	ID           string
	Title        string
	Kind         detect.Kind
	State        JobState
	SubmittedAt  time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
	OutputPath   string
	ChapterCount int
	CacheHit     bool
	Err          string
}

// Outcome is what a successful conversion produced.
type Outcome struct {
	JobID        string
	Title        string
	Kind         detect.Kind
	OutputPath   string
	ChapterCount int
	CacheHit     bool
}

// Snapshot summarizes orchestrator occupancy.
type Snapshot struct {
	Active   int
	Queued   int
	Capacity int
}
