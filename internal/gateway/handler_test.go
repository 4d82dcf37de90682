package gateway

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempotrack/tempo/internal/events"
	"github.com/tempotrack/tempo/internal/timer"
)

func clientMessage(t *testing.T, eventType EventType, payload interface{}) []byte {
	t.Helper()
	event, err := NewEvent(eventType, payload)
	require.NoError(t, err)
	data, err := event.Marshal()
	require.NoError(t, err)
	return data
}

func recvErrorCode(t *testing.T, conn *Connection) string {
	t.Helper()
	event := recvEventOfType(t, conn, EventTypeError)
	var payload events.ErrorPayload
	require.NoError(t, event.ParsePayload(&payload))
	return payload.Code
}

func TestDispatcherStartStopRoundTrip(t *testing.T) {
	f := newCoordinatorFixture(t, 10*time.Second)
	dispatcher := NewDispatcher(f.coord)
	ctx := context.Background()

	alice := testUser("alice")
	projectID := uuid.New()
	task := f.store.addTask(projectID, "wire protocol")
	f.store.addProjectMember(projectID, alice.ID)

	conn := newTestConnection(f.registry, alice)

	dispatcher.HandleMessage(ctx, conn, clientMessage(t, EventTypeStart, events.StartRequest{
		TaskID: task.ID.String(),
	}))
	started := recvEventOfType(t, conn, EventTypeStarted)
	var startPayload events.StartedPayload
	require.NoError(t, started.ParsePayload(&startPayload))

	dispatcher.HandleMessage(ctx, conn, clientMessage(t, EventTypeStop, events.StopRequest{
		SessionID: startPayload.SessionID,
	}))
	stopped := recvEventOfType(t, conn, EventTypeStopped)
	var stopPayload events.StoppedPayload
	require.NoError(t, stopped.ParsePayload(&stopPayload))
	assert.Equal(t, startPayload.SessionID, stopPayload.SessionID)
}

func TestDispatcherSync(t *testing.T) {
	f := newCoordinatorFixture(t, 10*time.Second)
	dispatcher := NewDispatcher(f.coord)

	conn := newTestConnection(f.registry, testUser("alice"))
	dispatcher.HandleMessage(context.Background(), conn, clientMessage(t, EventTypeSync, struct{}{}))
	assert.Equal(t, EventTypeNone, recvEvent(t, conn).Type)
}

func TestDispatcherErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		message  func(t *testing.T, f *coordinatorFixture) []byte
		wantCode ErrorCode
	}{
		{
			name: "stop with stale session id",
			message: func(t *testing.T, f *coordinatorFixture) []byte {
				return clientMessage(t, EventTypeStop, events.StopRequest{SessionID: uuid.New().String()})
			},
			wantCode: ErrCodeStaleSession,
		},
		{
			name: "start unknown task",
			message: func(t *testing.T, f *coordinatorFixture) []byte {
				return clientMessage(t, EventTypeStart, events.StartRequest{TaskID: uuid.New().String()})
			},
			wantCode: ErrCodeNotFound,
		},
		{
			name: "start with malformed task id",
			message: func(t *testing.T, f *coordinatorFixture) []byte {
				return clientMessage(t, EventTypeStart, events.StartRequest{TaskID: "not-a-uuid"})
			},
			wantCode: ErrCodeNotFound,
		},
		{
			name: "join room without membership",
			message: func(t *testing.T, f *coordinatorFixture) []byte {
				return clientMessage(t, EventTypeRoomJoin, events.RoomRequest{ProjectID: uuid.New().String()})
			},
			wantCode: ErrCodeForbidden,
		},
		{
			name: "join location without membership",
			message: func(t *testing.T, f *coordinatorFixture) []byte {
				return clientMessage(t, EventTypeLocationJoin, events.LocationRequest{LocationID: uuid.New().String()})
			},
			wantCode: ErrCodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(t, 10*time.Second)
			dispatcher := NewDispatcher(f.coord)
			conn := newTestConnection(f.registry, testUser("alice"))

			dispatcher.HandleMessage(context.Background(), conn, tt.message(t, f))
			assert.Equal(t, string(tt.wantCode), recvErrorCode(t, conn))
		})
	}
}

func TestDispatcherStartWhileRunningReportsAlreadyRunning(t *testing.T) {
	f := newCoordinatorFixture(t, 10*time.Second)
	dispatcher := NewDispatcher(f.coord)
	ctx := context.Background()

	alice := testUser("alice")
	projectID := uuid.New()
	task := f.store.addTask(projectID, "one at a time")
	f.store.addProjectMember(projectID, alice.ID)

	conn := newTestConnection(f.registry, alice)
	start := clientMessage(t, EventTypeStart, events.StartRequest{TaskID: task.ID.String()})

	dispatcher.HandleMessage(ctx, conn, start)
	recvEventOfType(t, conn, EventTypeStarted)

	dispatcher.HandleMessage(ctx, conn, start)
	assert.Equal(t, string(ErrCodeAlreadyRunning), recvErrorCode(t, conn))
}

func TestDispatcherIgnoresUnknownAndMalformedMessages(t *testing.T) {
	f := newCoordinatorFixture(t, 10*time.Second)
	dispatcher := NewDispatcher(f.coord)
	ctx := context.Background()

	conn := newTestConnection(f.registry, testUser("alice"))

	dispatcher.HandleMessage(ctx, conn, []byte("{not json"))
	dispatcher.HandleMessage(ctx, conn, clientMessage(t, EventType("made-up"), struct{}{}))
	requireNoEvent(t, conn)
}

func TestMapErrorTranslatesSentinels(t *testing.T) {
	tests := []struct {
		err  error
		code ErrorCode
	}{
		{timer.ErrAlreadyRunning, ErrCodeAlreadyRunning},
		{timer.ErrStaleSession, ErrCodeStaleSession},
		{timer.ErrTaskNotFound, ErrCodeNotFound},
		{timer.ErrLocationNotFound, ErrCodeNotFound},
		{timer.ErrNotProjectMember, ErrCodeForbidden},
		{timer.ErrUserNotFound, ErrCodeUserNotFound},
		{assert.AnError, ErrCodeSyncFailed},
	}

	for _, tt := range tests {
		event := mapError(tt.err, ErrCodeSyncFailed)
		var payload events.ErrorPayload
		require.NoError(t, event.ParsePayload(&payload))
		assert.Equal(t, string(tt.code), payload.Code)
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/timer", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws/timer?token=query-token", nil)
	assert.Equal(t, "query-token", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws/timer", nil)
	assert.Equal(t, "", bearerToken(r))
}
