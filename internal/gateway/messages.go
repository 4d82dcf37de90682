package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tempotrack/tempo/internal/events"
)

// Event is the envelope for every message on the wire, both directions
type Event struct {
	ID        string          `json:"id"`        // Event UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of timer event
type EventType string

// Client -> server message types
const (
	EventTypeStart         EventType = "start"
	EventTypeStop          EventType = "stop"
	EventTypeSync          EventType = "sync"
	EventTypeRoomJoin      EventType = "room:join"
	EventTypeRoomLeave     EventType = "room:leave"
	EventTypeLocationJoin  EventType = "location:join"
	EventTypeLocationLeave EventType = "location:leave"
	EventTypeLocationSync  EventType = "location:sync"
)

// Server -> client message types
const (
	EventTypeStarted             EventType = "started"
	EventTypeStopped             EventType = "stopped"
	EventTypeActive              EventType = "active"
	EventTypeNone                EventType = "none"
	EventTypeTick                EventType = "tick"
	EventTypeMemberStarted       EventType = "member-started"
	EventTypeMemberStopped       EventType = "member-stopped"
	EventTypeParticipantsUpdated EventType = "participants-updated"
	EventTypeError               EventType = "error"
)

// ErrorCode identifies why a request failed
type ErrorCode string

const (
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"
	ErrCodeStaleSession   ErrorCode = "STALE_SESSION"
	ErrCodeSyncFailed     ErrorCode = "SYNC_FAILED"
	ErrCodeStartFailed    ErrorCode = "START_FAILED"
	ErrCodeStopFailed     ErrorCode = "STOP_FAILED"
)

// NewEvent wraps a payload in a fresh envelope
func NewEvent(eventType EventType, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// NewErrorEvent builds an error envelope for the requesting connection
func NewErrorEvent(code ErrorCode, message string) *Event {
	event, _ := NewEvent(EventTypeError, events.ErrorPayload{
		Code:    string(code),
		Message: message,
	})
	return event
}

// Marshal encodes the envelope once for fan-out
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Event) unmarshal(data []byte) error {
	return json.Unmarshal(data, e)
}

// ParsePayload decodes the envelope's data into the given payload struct
func (e *Event) ParsePayload(payload interface{}) error {
	if err := json.Unmarshal(e.Data, payload); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}
