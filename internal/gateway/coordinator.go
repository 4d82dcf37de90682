package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/events"
	"github.com/tempotrack/tempo/internal/models"
	"github.com/tempotrack/tempo/internal/timer"
)

// TimerStore is the durable collaborator behind the coordinator. It is the
// single source of truth for "is a session active" and enforces the
// one-active-session-per-user invariant.
type TimerStore interface {
	StartTimer(ctx context.Context, userID, taskID uuid.UUID) (*models.TimerSession, error)
	StopTimer(ctx context.Context, userID, sessionID uuid.UUID) (time.Duration, error)
	ActiveSession(ctx context.Context, userID uuid.UUID) (*models.TimerSession, error)
	IsProjectMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	IsLocationMember(ctx context.Context, locationID, userID uuid.UUID) (bool, error)
	LocationParticipants(ctx context.Context, locationID uuid.UUID) ([]models.Participant, error)
}

// RemotePublisher mirrors local fan-out onto a cross-process broadcast
// medium. Nil when running single-instance.
type RemotePublisher interface {
	PublishUserEvent(userID uuid.UUID, event *Event)
	PublishRoomEvent(room RoomKey, event *Event)
}

// Coordinator is the state machine that turns start/stop/sync requests into
// store calls plus fan-out. Per user it is either Idle (no session) or
// Running (exactly one); every mutation is gated behind a successful store
// call, so a failed request never changes shared state.
//
// Start, stop and sync are serialized per user: the store consult and the
// ticker mutation they pair must commit as one step, or a sync racing a stop
// from another device can restart the ticker for a session that no longer
// exists.
type Coordinator struct {
	store    TimerStore
	registry *ConnectionManager
	rooms    *RoomManager
	ticks    *TickBroadcaster
	presence *PresenceNotifier
	clock    clockwork.Clock
	relay    RemotePublisher

	mu    sync.Mutex
	users map[uuid.UUID]*sync.Mutex
}

// NewCoordinator wires the coordinator over its collaborators
func NewCoordinator(store TimerStore, registry *ConnectionManager, rooms *RoomManager, ticks *TickBroadcaster, presence *PresenceNotifier, clock clockwork.Clock) *Coordinator {
	return &Coordinator{
		store:    store,
		registry: registry,
		rooms:    rooms,
		ticks:    ticks,
		presence: presence,
		clock:    clock,
		users:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockUser acquires the user's serialization lock. The caller must Unlock it.
func (c *Coordinator) lockUser(userID uuid.UUID) *sync.Mutex {
	c.mu.Lock()
	l, exists := c.users[userID]
	if !exists {
		l = &sync.Mutex{}
		c.users[userID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l
}

// SetRemotePublisher enables cross-process fan-out mirroring
func (c *Coordinator) SetRemotePublisher(relay RemotePublisher) {
	c.relay = relay
}

// Start begins timing a task for the connection's user. On success every one
// of the user's devices receives "started", the project room receives
// "member-started", and a ticker begins. On failure nothing changes.
func (c *Coordinator) Start(ctx context.Context, conn *Connection, taskID uuid.UUID) error {
	lock := c.lockUser(conn.UserID)
	defer lock.Unlock()

	session, err := c.store.StartTimer(ctx, conn.UserID, taskID)
	if err != nil {
		return err
	}

	started, err := NewEvent(EventTypeStarted, events.StartedPayload{
		SessionID: session.ID.String(),
		TaskID:    session.TaskID.String(),
		ProjectID: session.ProjectID.String(),
		TaskLabel: session.TaskLabel,
		StartedAt: session.StartedAt,
	})
	if err != nil {
		return err
	}

	c.broadcastToUser(conn.UserID, started)
	c.presence.MemberStarted(session.ProjectID, conn.UserID, conn.DisplayName, session.TaskLabel)
	c.publishRoom(ProjectRoom(session.ProjectID), EventTypeMemberStarted, events.MemberStartedPayload{
		UserID:      conn.UserID.String(),
		DisplayName: conn.DisplayName,
		TaskLabel:   session.TaskLabel,
		ProjectID:   session.ProjectID.String(),
	})
	c.ticks.EnsureRunning(session)
	return nil
}

// Stop ends the user's current session. The session id must match the active
// session; stale or unknown ids are rejected so a slow duplicate message
// cannot stop a different, newer session.
func (c *Coordinator) Stop(ctx context.Context, conn *Connection, sessionID uuid.UUID) error {
	lock := c.lockUser(conn.UserID)
	defer lock.Unlock()

	session, err := c.store.ActiveSession(ctx, conn.UserID)
	if err != nil {
		return err
	}
	if session == nil || session.ID != sessionID {
		return timer.ErrStaleSession
	}

	duration, err := c.store.StopTimer(ctx, conn.UserID, sessionID)
	if err != nil {
		return err
	}

	c.ticks.Stop(conn.UserID)

	durationMinutes := int(duration.Minutes())
	stopped, err := NewEvent(EventTypeStopped, events.StoppedPayload{
		SessionID:       sessionID.String(),
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		return err
	}

	c.broadcastToUser(conn.UserID, stopped)
	c.presence.MemberStopped(session.ProjectID, conn.UserID, conn.DisplayName, durationMinutes)
	c.publishRoom(ProjectRoom(session.ProjectID), EventTypeMemberStopped, events.MemberStoppedPayload{
		UserID:          conn.UserID.String(),
		DisplayName:     conn.DisplayName,
		DurationMinutes: durationMinutes,
		ProjectID:       session.ProjectID.String(),
	})
	return nil
}

// Sync reconciles one connection with the store. The store is always
// consulted, never gateway memory, so a device that was offline during a
// start or stop still converges on the truth.
func (c *Coordinator) Sync(ctx context.Context, conn *Connection) error {
	lock := c.lockUser(conn.UserID)
	defer lock.Unlock()

	session, err := c.store.ActiveSession(ctx, conn.UserID)
	if err != nil {
		return err
	}

	if session == nil {
		// An explicit "no active timer" reply; the caller must never have to
		// guess based on a timeout.
		none, err := NewEvent(EventTypeNone, struct{}{})
		if err != nil {
			return err
		}
		return conn.WriteEvent(none)
	}

	active, err := NewEvent(EventTypeActive, events.ActivePayload{
		SessionID: session.ID.String(),
		TaskID:    session.TaskID.String(),
		ProjectID: session.ProjectID.String(),
		TaskLabel: session.TaskLabel,
		StartedAt: session.StartedAt,
		ElapsedMs: session.Elapsed(c.clock.Now()).Milliseconds(),
	})
	if err != nil {
		return err
	}
	if err := conn.WriteEvent(active); err != nil {
		return err
	}

	c.ticks.EnsureRunning(session)

	// Owning an open session in the project implies membership, so the
	// reconnecting device rejoins its room without a second check.
	c.rooms.Join(conn, ProjectRoom(session.ProjectID))
	return nil
}

// JoinRoom subscribes the connection to a project's broadcast room after a
// membership check. State is unchanged on failure.
func (c *Coordinator) JoinRoom(ctx context.Context, conn *Connection, projectID uuid.UUID) error {
	member, err := c.store.IsProjectMember(ctx, projectID, conn.UserID)
	if err != nil {
		return err
	}
	if !member {
		return timer.ErrNotProjectMember
	}
	c.rooms.Join(conn, ProjectRoom(projectID))
	return nil
}

// LeaveRoom drops the subscription. No authorization needed to leave.
func (c *Coordinator) LeaveRoom(conn *Connection, projectID uuid.UUID) {
	c.rooms.Leave(conn, ProjectRoom(projectID))
}

// HandleDisconnect tears down the connection's room subscriptions
func (c *Coordinator) HandleDisconnect(conn *Connection) {
	c.rooms.DropConnection(conn)
}

// HandleLastDeviceGone runs when a user's last connection disappears. The
// session itself survives: a timer is a business action and only an explicit
// stop ends it. The ticker is cancelled since there is nobody to tick to; the
// next sync restarts it.
func (c *Coordinator) HandleLastDeviceGone(userID uuid.UUID) {
	lock := c.lockUser(userID)
	defer lock.Unlock()

	c.ticks.Stop(userID)
	log.Debug().Str("user_id", userID.String()).Msg("last device gone, ticker cancelled, session untouched")
}

func (c *Coordinator) broadcastToUser(userID uuid.UUID, event *Event) {
	c.registry.Broadcast(userID, event)
	if c.relay != nil {
		c.relay.PublishUserEvent(userID, event)
	}
}

func (c *Coordinator) publishRoom(room RoomKey, eventType EventType, payload interface{}) {
	if c.relay == nil {
		return
	}
	event, err := NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build relay event")
		return
	}
	c.relay.PublishRoomEvent(room, event)
}
