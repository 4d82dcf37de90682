package events

import (
	"time"

	"github.com/tempotrack/tempo/internal/models"
)

// Event payload types shared between the gateway and the relay.

// StartRequest asks the coordinator to start timing a task
type StartRequest struct {
	TaskID string `json:"task_id"`
}

// StopRequest asks the coordinator to stop the given session
type StopRequest struct {
	SessionID string `json:"session_id"`
}

// RoomRequest joins or leaves a project broadcast room
type RoomRequest struct {
	ProjectID string `json:"project_id"`
}

// LocationRequest joins, leaves or syncs a presence location
type LocationRequest struct {
	LocationID string `json:"location_id"`
}

// StartedPayload goes to the acting user's own devices after a start
type StartedPayload struct {
	SessionID string    `json:"session_id"`
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	TaskLabel string    `json:"task_label"`
	StartedAt time.Time `json:"started_at"`
}

// StoppedPayload goes to the acting user's own devices after a stop
type StoppedPayload struct {
	SessionID       string `json:"session_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

// ActivePayload is the sync reply when an open session exists
type ActivePayload struct {
	SessionID string    `json:"session_id"`
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	TaskLabel string    `json:"task_label"`
	StartedAt time.Time `json:"started_at"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// TickPayload is the periodic elapsed-time update to the owner's devices
type TickPayload struct {
	SessionID  string    `json:"session_id"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	ServerTime time.Time `json:"server_time"`
}

// MemberStartedPayload goes to a project room when a member starts a timer.
// Display-safe fields only; the session id stays with the owner.
type MemberStartedPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	TaskLabel   string `json:"task_label"`
	ProjectID   string `json:"project_id"`
}

// MemberStoppedPayload goes to a project room when a member stops a timer
type MemberStoppedPayload struct {
	UserID          string `json:"user_id"`
	DisplayName     string `json:"display_name"`
	DurationMinutes int    `json:"duration_minutes"`
	ProjectID       string `json:"project_id"`
}

// ParticipantsUpdatedPayload goes to a location room on every join/leave
type ParticipantsUpdatedPayload struct {
	LocationID   string               `json:"location_id"`
	Participants []models.Participant `json:"participants"`
}

// ErrorPayload reports a failed request back to the requesting connection
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
