package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/events"
	"github.com/tempotrack/tempo/internal/models"
)

// UserBroadcaster is what the tick broadcaster needs from the registry
type UserBroadcaster interface {
	Broadcast(userID uuid.UUID, event *Event)
}

// TickBroadcaster emits a periodic elapsed-time signal for every running
// session so idle devices stay visually in sync without re-polling. Exactly
// one ticker runs per user regardless of device count; a leaked ticker is a
// correctness bug, not a cosmetic one.
type TickBroadcaster struct {
	registry UserBroadcaster
	clock    clockwork.Clock
	interval time.Duration

	mu      sync.Mutex
	running map[uuid.UUID]chan struct{}
}

// NewTickBroadcaster creates a tick broadcaster with the given interval
func NewTickBroadcaster(registry UserBroadcaster, clock clockwork.Clock, interval time.Duration) *TickBroadcaster {
	return &TickBroadcaster{
		registry: registry,
		clock:    clock,
		interval: interval,
		running:  make(map[uuid.UUID]chan struct{}),
	}
}

// EnsureRunning starts a ticker for the session's user if one is not already
// running. Idempotent, so duplicate sync calls never produce duplicate ticks.
func (t *TickBroadcaster) EnsureRunning(session *models.TimerSession) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.running[session.UserID]; exists {
		return
	}

	done := make(chan struct{})
	t.running[session.UserID] = done
	go t.run(session, done)

	log.Debug().
		Str("user_id", session.UserID.String()).
		Str("session_id", session.ID.String()).
		Msg("tick broadcaster started")
}

// Stop cancels the user's ticker if one is running
func (t *TickBroadcaster) Stop(userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if done, exists := t.running[userID]; exists {
		close(done)
		delete(t.running, userID)
		log.Debug().Str("user_id", userID.String()).Msg("tick broadcaster stopped")
	}
}

// StopAll cancels every running ticker. Used on shutdown.
func (t *TickBroadcaster) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for userID, done := range t.running {
		close(done)
		delete(t.running, userID)
	}
}

// Running reports whether a ticker is active for the user
func (t *TickBroadcaster) Running(userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.running[userID]
	return exists
}

func (t *TickBroadcaster) run(session *models.TimerSession, done chan struct{}) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			now := t.clock.Now()
			event, err := NewEvent(EventTypeTick, events.TickPayload{
				SessionID:  session.ID.String(),
				ElapsedMs:  session.Elapsed(now).Milliseconds(),
				ServerTime: now.UTC(),
			})
			if err != nil {
				log.Error().Err(err).Msg("failed to build tick event")
				continue
			}
			// Broadcasting to a user with zero connections is a no-op.
			t.registry.Broadcast(session.UserID, event)
		}
	}
}
