package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempotrack/tempo/internal/models"
)

type fakeStateProvider struct {
	sessions     []models.TimerSession
	participants []models.Participant
	err          error
}

func (f *fakeStateProvider) ActiveSessions(ctx context.Context) ([]models.TimerSession, error) {
	return f.sessions, f.err
}

func (f *fakeStateProvider) LocationParticipants(ctx context.Context, locationID uuid.UUID) ([]models.Participant, error) {
	return f.participants, f.err
}

func TestHandleActiveTimers(t *testing.T) {
	session := models.TimerSession{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TaskID:    uuid.New(),
		ProjectID: uuid.New(),
		TaskLabel: "quarterly report",
		StartedAt: time.Now().Add(-2 * time.Minute),
	}
	handler := NewStateHandler(&fakeStateProvider{sessions: []models.TimerSession{session}})

	w := httptest.NewRecorder()
	handler.HandleActiveTimers(w, httptest.NewRequest(http.MethodGet, "/api/timers/active", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var infos []ActiveTimerInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, session.ID.String(), infos[0].SessionID)
	assert.Equal(t, "quarterly report", infos[0].TaskLabel)
	assert.Greater(t, infos[0].ElapsedMs, int64(0))
}

func TestHandleActiveTimersRejectsPost(t *testing.T) {
	handler := NewStateHandler(&fakeStateProvider{})

	w := httptest.NewRecorder()
	handler.HandleActiveTimers(w, httptest.NewRequest(http.MethodPost, "/api/timers/active", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleLocationPresence(t *testing.T) {
	locationID := uuid.New()
	provider := &fakeStateProvider{participants: []models.Participant{
		{UserID: uuid.New(), DisplayName: "alice", TrackedMinutes: 90},
	}}
	handler := NewStateHandler(provider)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/locations/"+locationID.String()+"/presence", nil)
	handler.HandleLocationPresence(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var participants []models.Participant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &participants))
	require.Len(t, participants, 1)
	assert.Equal(t, 90, participants[0].TrackedMinutes)
}

func TestHandleLocationPresenceBadID(t *testing.T) {
	handler := NewStateHandler(&fakeStateProvider{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/locations/not-a-uuid/presence", nil)
	handler.HandleLocationPresence(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractLocationIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/locations/abc-123/presence", "abc-123"},
		{"/api/locations//presence", ""},
		{"/api/locations/abc-123", ""},
		{"/other/abc-123/presence", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractLocationIDFromPath(tt.path), tt.path)
	}
}
