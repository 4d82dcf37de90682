package gateway

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomKind distinguishes project broadcast rooms from presence locations
type RoomKind string

const (
	RoomKindProject  RoomKind = "project"
	RoomKindLocation RoomKind = "location"
)

// RoomKey identifies one broadcast room
type RoomKey struct {
	Kind RoomKind
	ID   uuid.UUID
}

// ProjectRoom returns the room key for a project's broadcast group
func ProjectRoom(projectID uuid.UUID) RoomKey {
	return RoomKey{Kind: RoomKindProject, ID: projectID}
}

// LocationRoom returns the room key for a presence location
func LocationRoom(locationID uuid.UUID) RoomKey {
	return RoomKey{Kind: RoomKindLocation, ID: locationID}
}

// RoomManager tracks ephemeral room subscriptions per connection. Membership
// authorization happens in the coordinator before Join is called; the manager
// itself is mechanical.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[RoomKey]map[*Connection]bool
	conns map[*Connection]map[RoomKey]bool
}

// NewRoomManager creates an empty room manager
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[RoomKey]map[*Connection]bool),
		conns: make(map[*Connection]map[RoomKey]bool),
	}
}

// Join subscribes the connection to a room. Idempotent.
func (rm *RoomManager) Join(conn *Connection, room RoomKey) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.rooms[room] == nil {
		rm.rooms[room] = make(map[*Connection]bool)
	}
	rm.rooms[room][conn] = true

	if rm.conns[conn] == nil {
		rm.conns[conn] = make(map[RoomKey]bool)
	}
	rm.conns[conn][room] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_kind", string(room.Kind)).
		Str("room_id", room.ID.String()).
		Int("members", len(rm.rooms[room])).
		Msg("connection joined room")
}

// Leave removes the subscription unconditionally
func (rm *RoomManager) Leave(conn *Connection, room RoomKey) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.leaveLocked(conn, room)
}

// DropConnection removes every room subscription held by the connection.
// Called on disconnect.
func (rm *RoomManager) DropConnection(conn *Connection) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for room := range rm.conns[conn] {
		rm.leaveLocked(conn, room)
	}
}

func (rm *RoomManager) leaveLocked(conn *Connection, room RoomKey) {
	if members, exists := rm.rooms[room]; exists {
		delete(members, conn)
		if len(members) == 0 {
			delete(rm.rooms, room)
		}
	}
	if rooms, exists := rm.conns[conn]; exists {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(rm.conns, conn)
		}
	}
}

// BroadcastToRoom delivers an event to every subscribed connection except the
// optional excluded one (so the originating device does not get a room echo
// of an action it already saw on the direct per-user channel).
func (rm *RoomManager) BroadcastToRoom(room RoomKey, event *Event, exclude *Connection) {
	rm.mu.RLock()
	members, exists := rm.rooms[room]
	if !exists {
		rm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(members))
	for conn := range members {
		if conn == exclude {
			continue
		}
		targets = append(targets, conn)
	}
	rm.mu.RUnlock()

	data, err := event.Marshal()
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for room broadcast")
		return
	}

	for _, conn := range targets {
		conn.send(data)
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("room_kind", string(room.Kind)).
		Str("room_id", room.ID.String()).
		Int("connections", len(targets)).
		Msg("event broadcast to room")
}

// Members returns the number of connections subscribed to the room
func (rm *RoomManager) Members(room RoomKey) int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms[room])
}

// Rooms returns a snapshot of the rooms the connection is subscribed to
func (rm *RoomManager) Rooms(conn *Connection) []RoomKey {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	keys := make([]RoomKey, 0, len(rm.conns[conn]))
	for room := range rm.conns[conn] {
		keys = append(keys, room)
	}
	return keys
}
