package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/models"
)

// MessageHandler receives inbound client messages from a connection's read
// loop. Messages from one connection are delivered one at a time.
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn *Connection, raw []byte)
}

// ConnectionManager tracks every live connection grouped by user identity.
// A user may hold any number of simultaneous connections (multi-device).
type ConnectionManager struct {
	// Connection sets organized by user ID. A user with an empty set is
	// removed, never kept as an empty entry.
	userConnections map[uuid.UUID]map[*Connection]bool
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config  ConnectionConfig
	handler MessageHandler

	// Policy hooks, owned by the coordinator. The registry itself stays
	// policy-free.
	onDisconnect     func(conn *Connection)
	onLastDisconnect func(userID uuid.UUID)
}

// Connection represents one live transport-level session of one device
type Connection struct {
	ID          string
	UserID      uuid.UUID
	DisplayName string
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		userConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// SetMessageHandler wires the inbound message dispatcher. Must be called
// before the first upgrade.
func (cm *ConnectionManager) SetMessageHandler(h MessageHandler) {
	cm.handler = h
}

// SetDisconnectHooks wires the per-connection and last-device-gone hooks.
// Must be called before the first upgrade.
func (cm *ConnectionManager) SetDisconnectHooks(onDisconnect func(*Connection), onLastDisconnect func(uuid.UUID)) {
	cm.onDisconnect = onDisconnect
	cm.onLastDisconnect = onLastDisconnect
}

// UpgradeConnection upgrades an HTTP request to a WebSocket connection owned
// by the given authenticated user, registers it and starts its pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, user *models.User) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.Register(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", user.ID.String()).
		Msg("WebSocket connection established")

	return connection, nil
}

// Register adds a connection under its user's set. Idempotent.
func (cm *ConnectionManager) Register(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.userConnections[conn.UserID] == nil {
		cm.userConnections[conn.UserID] = make(map[*Connection]bool)
	}
	cm.userConnections[conn.UserID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID.String()).
		Int("device_count", len(cm.userConnections[conn.UserID])).
		Msg("connection registered")
}

// Unregister removes a connection from its owner's set. When the set empties
// the user entry is deleted and the last-device-gone hook fires.
func (cm *ConnectionManager) Unregister(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.userConnections[conn.UserID]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	close(conn.Send)

	lastDevice := len(connections) == 0
	if lastDevice {
		delete(cm.userConnections, conn.UserID)
	}
	cm.mu.Unlock()

	if cm.onDisconnect != nil {
		cm.onDisconnect(conn)
	}
	if lastDevice && cm.onLastDisconnect != nil {
		cm.onLastDisconnect(conn.UserID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID.String()).
		Bool("last_device", lastDevice).
		Msg("connection unregistered")
}

// Broadcast delivers an event to every connection currently registered for
// the user. Connections that disconnect mid-broadcast simply miss it.
func (cm *ConnectionManager) Broadcast(userID uuid.UUID, event *Event) {
	cm.mu.RLock()
	connections, exists := cm.userConnections[userID]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := event.Marshal()
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		conn.send(data)
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("user_id", userID.String()).
		Int("connections", len(targets)).
		Msg("event broadcast to user devices")
}

// Connections returns a read-only snapshot of the user's live connections
func (cm *ConnectionManager) Connections(userID uuid.UUID) []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	connections := cm.userConnections[userID]
	snapshot := make([]*Connection, 0, len(connections))
	for conn := range connections {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// Stats returns counts of connected users and devices
func (cm *ConnectionManager) Stats() (users, connections int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	users = len(cm.userConnections)
	for _, conns := range cm.userConnections {
		connections += len(conns)
	}
	return users, connections
}

// WriteEvent queues an event on this single connection
func (c *Connection) WriteEvent(event *Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	c.send(data)
	return nil
}

// send queues raw bytes, evicting the connection if its buffer is full
func (c *Connection) send(data []byte) {
	defer func() {
		// Send may race a concurrent Unregister closing the channel; a
		// connection going away mid-broadcast just misses the message.
		_ = recover()
	}()

	select {
	case c.Send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID.String()).
			Msg("connection send buffer full, closing connection")
		// Tear down on a fresh goroutine: send may be called from inside a
		// coordinator operation, and the disconnect hooks take the same
		// per-user lock that operation already holds.
		go func() {
			c.Manager.Unregister(c)
			c.close()
		}()
	}
}

func (c *Connection) close() {
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
		c.Manager.Unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump reads client messages and hands them to the dispatcher one at a
// time, so handlers for a single connection never interleave.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.Unregister(c)
		c.close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.handler != nil {
			c.Manager.handler.HandleMessage(context.Background(), c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
