package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/gateway"
)

// JetStreamConfig holds configuration for the broadcast relay stream
type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	InstanceID      string // identifies this process so it skips its own messages
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

// DefaultJetStreamConfig returns default relay configuration
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "TIMER_EVENTS",
		SubjectPrefix:   "timer.events",
		InstanceID:      uuid.New().String()[:8],
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          time.Hour,
		DuplicateWindow: 2 * time.Minute,
	}
}

// envelope carries one gateway event across processes
type envelope struct {
	EventID  string          `json:"event_id"`
	Instance string          `json:"instance"`
	Scope    string          `json:"scope"` // "user" or "room"
	UserID   string          `json:"user_id,omitempty"`
	RoomKind string          `json:"room_kind,omitempty"`
	RoomID   string          `json:"room_id,omitempty"`
	Event    json.RawMessage `json:"event"`
}

// Publisher mirrors local fan-out onto JetStream so sibling instances can
// deliver to the connections they hold. Implements gateway.RemotePublisher.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

// NewPublisher connects to NATS and ensures the relay stream exists
func NewPublisher(cfg JetStreamConfig) (*Publisher, error) {
	nc, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &Publisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func connect(cfg JetStreamConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Cross-instance timer broadcast relay",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.MemoryStorage,
		Duplicates:  p.config.DuplicateWindow,
	}

	if _, err := p.js.Stream(ctx, p.config.StreamName); err != nil {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("created JetStream stream")
	}
	return nil
}

// PublishUserEvent mirrors a per-user broadcast
func (p *Publisher) PublishUserEvent(userID uuid.UUID, event *gateway.Event) {
	subject := fmt.Sprintf("%s.user.%s", p.config.SubjectPrefix, userID)
	p.publish(subject, envelope{
		EventID:  event.ID,
		Instance: p.config.InstanceID,
		Scope:    "user",
		UserID:   userID.String(),
	}, event)
}

// PublishRoomEvent mirrors a room broadcast
func (p *Publisher) PublishRoomEvent(room gateway.RoomKey, event *gateway.Event) {
	subject := fmt.Sprintf("%s.room.%s.%s", p.config.SubjectPrefix, room.Kind, room.ID)
	p.publish(subject, envelope{
		EventID:  event.ID,
		Instance: p.config.InstanceID,
		Scope:    "room",
		RoomKind: string(room.Kind),
		RoomID:   room.ID.String(),
	}, event)
}

func (p *Publisher) publish(subject string, env envelope, event *gateway.Event) {
	eventData, err := event.Marshal()
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for relay")
		return
	}
	env.Event = eventData

	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal relay envelope")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(env.EventID)); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish relay event")
	}
}

// Close shuts down the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
