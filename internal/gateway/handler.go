package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/events"
	"github.com/tempotrack/tempo/internal/models"
	"github.com/tempotrack/tempo/internal/timer"
)

// IdentityResolver validates a bearer credential and returns the owning
// user. Strictly external: there is no development bypass.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// WebSocketHandler authenticates and upgrades timer connections
type WebSocketHandler struct {
	manager  *ConnectionManager
	resolver IdentityResolver
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(manager *ConnectionManager, resolver IdentityResolver) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		resolver: resolver,
	}
}

// HandleConnection handles a timer channel connection. The credential is
// validated before the connection is registered; failure yields an
// UNAUTHORIZED error message and a forced disconnect.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	user, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("connection rejected")
		h.rejectUnauthorized(w, r, err)
		return
	}

	if _, err := h.manager.UpgradeConnection(w, r, user); err != nil {
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	users, connections := h.manager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"connected_users":%d,"connections":%d}`, users, connections)
}

// rejectUnauthorized upgrades just long enough to deliver the error message
// the protocol promises, then closes.
func (h *WebSocketHandler) rejectUnauthorized(w http.ResponseWriter, r *http.Request, cause error) {
	conn, err := h.manager.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	code := ErrCodeUnauthorized
	if errors.Is(cause, timer.ErrUserNotFound) {
		code = ErrCodeUserNotFound
	}
	event := NewErrorEvent(code, "authentication failed")
	if data, err := event.Marshal(); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if t, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return t
		}
	}
	return r.URL.Query().Get("token")
}

// Dispatcher routes inbound messages from the read loop to the coordinator.
// Failures are reported to the requesting connection only; everything else is
// a no-op for that request.
type Dispatcher struct {
	coordinator *Coordinator
}

// NewDispatcher creates a dispatcher over the coordinator
func NewDispatcher(coordinator *Coordinator) *Dispatcher {
	return &Dispatcher{coordinator: coordinator}
}

// HandleMessage implements MessageHandler
func (d *Dispatcher) HandleMessage(ctx context.Context, conn *Connection, raw []byte) {
	var event Event
	if err := event.unmarshal(raw); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("unparseable client message")
		return
	}

	switch event.Type {
	case EventTypeStart:
		var req events.StartRequest
		taskID, err := parseIDPayload(&event, &req, func() string { return req.TaskID })
		if err != nil {
			d.sendError(conn, NewErrorEvent(ErrCodeNotFound, "invalid task id"))
			return
		}
		d.report(conn, d.coordinator.Start(ctx, conn, taskID), ErrCodeStartFailed)

	case EventTypeStop:
		var req events.StopRequest
		sessionID, err := parseIDPayload(&event, &req, func() string { return req.SessionID })
		if err != nil {
			d.sendError(conn, NewErrorEvent(ErrCodeStaleSession, "invalid session id"))
			return
		}
		d.report(conn, d.coordinator.Stop(ctx, conn, sessionID), ErrCodeStopFailed)

	case EventTypeSync:
		d.report(conn, d.coordinator.Sync(ctx, conn), ErrCodeSyncFailed)

	case EventTypeRoomJoin:
		var req events.RoomRequest
		projectID, err := parseIDPayload(&event, &req, func() string { return req.ProjectID })
		if err != nil {
			d.sendError(conn, NewErrorEvent(ErrCodeNotFound, "invalid project id"))
			return
		}
		d.report(conn, d.coordinator.JoinRoom(ctx, conn, projectID), ErrCodeSyncFailed)

	case EventTypeRoomLeave:
		var req events.RoomRequest
		projectID, err := parseIDPayload(&event, &req, func() string { return req.ProjectID })
		if err != nil {
			d.sendError(conn, NewErrorEvent(ErrCodeNotFound, "invalid project id"))
			return
		}
		d.coordinator.LeaveRoom(conn, projectID)

	case EventTypeLocationJoin:
		var req events.LocationRequest
		locationID, err := parseIDPayload(&event, &req, func() string { return req.LocationID })
		if err != nil {
			d.sendError(conn, NewErrorEvent(ErrCodeNotFound, "invalid location id"))
			return
		}
		d.report(conn, d.coordinator.JoinLocation(ctx, conn, locationID), ErrCodeSyncFailed)

	case EventTypeLocationLeave:
		var req events.LocationRequest
		locationID, err := parseIDPayload(&event, &req, func() string { return req.LocationID })
		if err != nil {
			d.sendError(conn, NewErrorEvent(ErrCodeNotFound, "invalid location id"))
			return
		}
		d.report(conn, d.coordinator.LeaveLocation(ctx, conn, locationID), ErrCodeSyncFailed)

	case EventTypeLocationSync:
		var req events.LocationRequest
		locationID, err := parseIDPayload(&event, &req, func() string { return req.LocationID })
		if err != nil {
			d.sendError(conn, NewErrorEvent(ErrCodeNotFound, "invalid location id"))
			return
		}
		d.report(conn, d.coordinator.SyncLocation(ctx, conn, locationID), ErrCodeSyncFailed)

	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("connection_id", conn.ID).
			Msg("unknown message type - ignoring")
	}
}

func (d *Dispatcher) report(conn *Connection, err error, fallback ErrorCode) {
	if err == nil {
		return
	}
	d.sendError(conn, mapError(err, fallback))
}

func (d *Dispatcher) sendError(conn *Connection, event *Event) {
	if err := conn.WriteEvent(event); err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to send error event")
	}
}

// mapError translates store-layer failures into wire error codes
func mapError(err error, fallback ErrorCode) *Event {
	switch {
	case errors.Is(err, timer.ErrAlreadyRunning):
		return NewErrorEvent(ErrCodeAlreadyRunning, "a timer is already running")
	case errors.Is(err, timer.ErrStaleSession):
		return NewErrorEvent(ErrCodeStaleSession, "session is not the current active session")
	case errors.Is(err, timer.ErrTaskNotFound):
		return NewErrorEvent(ErrCodeNotFound, "task not found")
	case errors.Is(err, timer.ErrLocationNotFound):
		return NewErrorEvent(ErrCodeNotFound, "location not found")
	case errors.Is(err, timer.ErrNotProjectMember):
		return NewErrorEvent(ErrCodeForbidden, "not a member")
	case errors.Is(err, timer.ErrUserNotFound):
		return NewErrorEvent(ErrCodeUserNotFound, "user not found")
	default:
		return NewErrorEvent(fallback, err.Error())
	}
}

func parseIDPayload(event *Event, payload interface{}, id func() string) (uuid.UUID, error) {
	if err := event.ParsePayload(payload); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(id())
}
