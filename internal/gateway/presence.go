package gateway

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/events"
)

// PresenceNotifier fans timer activity out to a project's room. It carries
// display-safe fields only: the session identifier and task notes never leave
// the owner's direct channel. No independent state.
type PresenceNotifier struct {
	rooms *RoomManager
}

// NewPresenceNotifier creates a presence notifier over the given room manager
func NewPresenceNotifier(rooms *RoomManager) *PresenceNotifier {
	return &PresenceNotifier{rooms: rooms}
}

// MemberStarted tells a project room that a member began timing a task
func (p *PresenceNotifier) MemberStarted(projectID, userID uuid.UUID, displayName, taskLabel string) {
	event, err := NewEvent(EventTypeMemberStarted, events.MemberStartedPayload{
		UserID:      userID.String(),
		DisplayName: displayName,
		TaskLabel:   taskLabel,
		ProjectID:   projectID.String(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build member-started event")
		return
	}
	p.rooms.BroadcastToRoom(ProjectRoom(projectID), event, nil)
}

// MemberStopped tells a project room that a member stopped their timer
func (p *PresenceNotifier) MemberStopped(projectID, userID uuid.UUID, displayName string, durationMinutes int) {
	event, err := NewEvent(EventTypeMemberStopped, events.MemberStoppedPayload{
		UserID:          userID.String(),
		DisplayName:     displayName,
		DurationMinutes: durationMinutes,
		ProjectID:       projectID.String(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build member-stopped event")
		return
	}
	p.rooms.BroadcastToRoom(ProjectRoom(projectID), event, nil)
}
