package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/tempotrack/tempo/internal/events"
	"github.com/tempotrack/tempo/internal/timer"
)

// Presence/location channel. Locations behave like project rooms except the
// broadcast is a full participant snapshot, recomputed from the store on
// every join and leave.

// JoinLocation subscribes the connection to a location and rebroadcasts the
// participant list to everyone there, the joiner included.
func (c *Coordinator) JoinLocation(ctx context.Context, conn *Connection, locationID uuid.UUID) error {
	member, err := c.store.IsLocationMember(ctx, locationID, conn.UserID)
	if err != nil {
		return err
	}
	if !member {
		return timer.ErrNotProjectMember
	}

	c.rooms.Join(conn, LocationRoom(locationID))
	return c.broadcastParticipants(ctx, locationID)
}

// LeaveLocation drops the subscription and rebroadcasts to whoever remains
func (c *Coordinator) LeaveLocation(ctx context.Context, conn *Connection, locationID uuid.UUID) error {
	c.rooms.Leave(conn, LocationRoom(locationID))
	return c.broadcastParticipants(ctx, locationID)
}

// SyncLocation sends the current participant list to the one requesting
// connection without disturbing the rest of the room.
func (c *Coordinator) SyncLocation(ctx context.Context, conn *Connection, locationID uuid.UUID) error {
	event, err := c.participantsEvent(ctx, locationID)
	if err != nil {
		return err
	}
	return conn.WriteEvent(event)
}

func (c *Coordinator) broadcastParticipants(ctx context.Context, locationID uuid.UUID) error {
	event, err := c.participantsEvent(ctx, locationID)
	if err != nil {
		return err
	}
	room := LocationRoom(locationID)
	c.rooms.BroadcastToRoom(room, event, nil)
	if c.relay != nil {
		c.relay.PublishRoomEvent(room, event)
	}
	return nil
}

func (c *Coordinator) participantsEvent(ctx context.Context, locationID uuid.UUID) (*Event, error) {
	participants, err := c.store.LocationParticipants(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return NewEvent(EventTypeParticipantsUpdated, events.ParticipantsUpdatedPayload{
		LocationID:   locationID.String(),
		Participants: participants,
	})
}
