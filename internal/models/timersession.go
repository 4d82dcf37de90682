package models

import (
	"time"

	"github.com/google/uuid"
)

// TimerSession is the live record of one user currently timing one task.
// StartedAt is the authoritative wall-clock instant recorded by the store;
// elapsed time is always derived from it, never accumulated client-side.
type TimerSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TaskID    uuid.UUID `json:"task_id"`
	ProjectID uuid.UUID `json:"project_id"`
	TaskLabel string    `json:"task_label"`
	StartedAt time.Time `json:"started_at"`
}

// Elapsed returns the time tracked so far relative to now.
func (s *TimerSession) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}
