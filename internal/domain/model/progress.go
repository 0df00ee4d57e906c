package model

import "time"

type ProgressState string

const (
	ProgressRunning   ProgressState = "running"
	ProgressCompleted ProgressState = "completed"
	ProgressFailed    ProgressState = "failed"
)

// SessionProgress is the poll-able state of a generation run.
// Total counts generation steps (two per scene).
type SessionProgress struct {
	SessionID string        `json:"session_id"`
	Owner     string        `json:"owner,omitempty"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Skipped   int           `json:"skipped"`
	State     ProgressState `json:"state"`
	UpdatedAt time.Time     `json:"updated_at"`
}
