package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service is the realtime timer gateway: one connection registry, one room
// manager and one coordinator per process.
type Service struct {
	registry     *ConnectionManager
	rooms        *RoomManager
	ticks        *TickBroadcaster
	coordinator  *Coordinator
	wsHandler    *WebSocketHandler
	stateHandler *StateHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	TickInterval     time.Duration
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		TickInterval:     10 * time.Second,
	}
}

// NewService wires the gateway over its collaborators. The store and the
// identity resolver are strict external dependencies.
func NewService(config Config, store TimerStore, resolver IdentityResolver, stateProvider StateProvider, clock clockwork.Clock) *Service {
	registry := NewConnectionManager(config.ConnectionConfig)
	rooms := NewRoomManager()
	ticks := NewTickBroadcaster(registry, clock, config.TickInterval)
	presence := NewPresenceNotifier(rooms)
	coordinator := NewCoordinator(store, registry, rooms, ticks, presence, clock)

	registry.SetMessageHandler(NewDispatcher(coordinator))
	registry.SetDisconnectHooks(coordinator.HandleDisconnect, coordinator.HandleLastDeviceGone)

	return &Service{
		registry:     registry,
		rooms:        rooms,
		ticks:        ticks,
		coordinator:  coordinator,
		wsHandler:    NewWebSocketHandler(registry, resolver),
		stateHandler: NewStateHandler(stateProvider),
	}
}

// Registry exposes the connection manager for relay wiring
func (s *Service) Registry() *ConnectionManager {
	return s.registry
}

// Rooms exposes the room manager for relay wiring
func (s *Service) Rooms() *RoomManager {
	return s.rooms
}

// SetRemotePublisher mirrors fan-out onto a cross-process broadcast medium
func (s *Service) SetRemotePublisher(relay RemotePublisher) {
	s.coordinator.SetRemotePublisher(relay)
}

// Start blocks until the context is cancelled, then tears down tickers
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("timer gateway started")
	<-ctx.Done()
	s.ticks.StopAll()
	log.Info().Msg("timer gateway stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/timer", s.wsHandler.HandleConnection)
	mux.HandleFunc("/ws/stats", s.wsHandler.HandleConnectionStats)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("timer gateway routes registered")
}
