package gateway

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tempotrack/tempo/internal/models"
)

// newTestConnection builds a registered connection with no underlying socket.
// Events queued for it are read straight off the Send channel.
func newTestConnection(cm *ConnectionManager, user *models.User) *Connection {
	conn := &Connection{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Send:        make(chan []byte, 32),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.Register(conn)
	return conn
}

func testUser(name string) *models.User {
	return &models.User{
		ID:          uuid.New(),
		DisplayName: name,
		Email:       name + "@example.com",
	}
}

// recvEvent waits for the next event queued on the connection
func recvEvent(t *testing.T, conn *Connection) *Event {
	t.Helper()
	select {
	case data := <-conn.Send:
		var event Event
		require.NoError(t, event.unmarshal(data))
		return &event
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event on connection %s", conn.ID)
		return nil
	}
}

// recvEventOfType discards queued events until one of the wanted type arrives
func recvEventOfType(t *testing.T, conn *Connection, eventType EventType) *Event {
	t.Helper()
	for i := 0; i < 16; i++ {
		event := recvEvent(t, conn)
		if event.Type == eventType {
			return event
		}
	}
	t.Fatalf("no %s event received on connection %s", eventType, conn.ID)
	return nil
}

// requireNoEvent asserts nothing is queued on the connection
func requireNoEvent(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case data := <-conn.Send:
		var event Event
		_ = event.unmarshal(data)
		t.Fatalf("unexpected %s event on connection %s", event.Type, conn.ID)
	default:
	}
}
