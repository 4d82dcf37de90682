package models

import (
	"github.com/google/uuid"
)

// Location is a physical or virtual place whose members share presence updates.
type Location struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Participant is one location member as shown in a presence broadcast:
// today's cumulative tracked time plus whatever they are working on right now.
type Participant struct {
	UserID         uuid.UUID `json:"user_id"`
	DisplayName    string    `json:"display_name"`
	TrackedMinutes int       `json:"tracked_minutes"`
	TaskLabel      *string   `json:"task_label,omitempty"`
}
