package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a unit of work time is tracked against.
type Task struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Label     string    `json:"label"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
