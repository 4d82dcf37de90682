package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/models"
)

// StateProvider serves the read-only HTTP surface next to the websocket
type StateProvider interface {
	ActiveSessions(ctx context.Context) ([]models.TimerSession, error)
	LocationParticipants(ctx context.Context, locationID uuid.UUID) ([]models.Participant, error)
}

// ActiveTimerInfo is one running timer as shown on the admin surface
type ActiveTimerInfo struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	TaskLabel string    `json:"task_label"`
	StartedAt time.Time `json:"started_at"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// StateHandler handles HTTP requests for timer and presence state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleActiveTimers handles GET /api/timers/active
func (h *StateHandler) HandleActiveTimers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := h.stateProvider.ActiveSessions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list active sessions")
		http.Error(w, "Failed to list active timers", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	infos := make([]ActiveTimerInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, ActiveTimerInfo{
			SessionID: s.ID.String(),
			UserID:    s.UserID.String(),
			TaskID:    s.TaskID.String(),
			ProjectID: s.ProjectID.String(),
			TaskLabel: s.TaskLabel,
			StartedAt: s.StartedAt,
			ElapsedMs: s.Elapsed(now).Milliseconds(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		log.Error().Err(err).Msg("failed to encode active timers response")
	}
}

// HandleLocationPresence handles GET /api/locations/{id}/presence
func (h *StateHandler) HandleLocationPresence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	locationIDStr := extractLocationIDFromPath(r.URL.Path)
	if locationIDStr == "" {
		http.Error(w, "Location ID is required", http.StatusBadRequest)
		return
	}

	locationID, err := uuid.Parse(locationIDStr)
	if err != nil {
		http.Error(w, "Invalid location ID format", http.StatusBadRequest)
		return
	}

	participants, err := h.stateProvider.LocationParticipants(r.Context(), locationID)
	if err != nil {
		log.Error().Err(err).Str("location_id", locationID.String()).Msg("failed to get location presence")
		http.Error(w, "Failed to get location presence", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(participants); err != nil {
		log.Error().Err(err).Msg("failed to encode presence response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/timers/active", h.HandleActiveTimers)

	mux.HandleFunc("/api/locations/", func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > len("/api/locations/") && r.URL.Path[len(r.URL.Path)-9:] == "/presence" {
			h.HandleLocationPresence(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
}

// extractLocationIDFromPath extracts the id from /api/locations/{id}/presence
func extractLocationIDFromPath(path string) string {
	const prefix = "/api/locations/"
	const suffix = "/presence"

	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}
	if path[:len(prefix)] != prefix || path[len(path)-len(suffix):] != suffix {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}
