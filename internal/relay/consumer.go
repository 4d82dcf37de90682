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

// ConsumerConfig holds configuration for the relay consumer
type ConsumerConfig struct {
	JetStreamConfig
	ConsumerName  string
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
}

// DefaultConsumerConfig returns default relay consumer configuration. The
// consumer name embeds the instance id so every process gets its own copy of
// the stream.
func DefaultConsumerConfig() ConsumerConfig {
	js := DefaultJetStreamConfig()
	return ConsumerConfig{
		JetStreamConfig: js,
		ConsumerName:    fmt.Sprintf("timer-relay-%s", js.InstanceID),
		AckWait:         30 * time.Second,
		MaxDeliver:      5,
		MaxAckPending:   100,
	}
}

// Consumer receives relayed events from sibling instances and replays them
// into the local registry and rooms, skipping messages this instance
// originated.
type Consumer struct {
	registry *gateway.ConnectionManager
	rooms    *gateway.RoomManager
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   ConsumerConfig
}

// NewConsumer connects to NATS and creates the relay consumer
func NewConsumer(registry *gateway.ConnectionManager, rooms *gateway.RoomManager, config ConsumerConfig) (*Consumer, error) {
	nc, err := connect(config.JetStreamConfig)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c := &Consumer{
		registry: registry,
		rooms:    rooms,
		nc:       nc,
		js:       js,
		config:   config,
	}

	if err := c.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          c.config.ConsumerName,
		Description:   "Timer gateway relay consumer",
		FilterSubject: fmt.Sprintf("%s.>", c.config.SubjectPrefix),
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.config.MaxDeliver,
		AckWait:       c.config.AckWait,
		MaxAckPending: c.config.MaxAckPending,
	}

	consumer, err := stream.Consumer(ctx, c.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", c.config.ConsumerName).
			Str("stream", c.config.StreamName).
			Msg("created relay consumer")
	}

	c.consumer = consumer
	return nil
}

// Start begins consuming relayed events until the context is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", c.config.ConsumerName).
		Str("instance", c.config.InstanceID).
		Msg("starting relay consumer")

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		if err := c.processMessage(msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process relay message")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error().Err(nakErr).Msg("failed to NAK relay message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK relay message")
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	<-ctx.Done()
	consumeCtx.Stop()
	log.Info().Msg("relay consumer shutting down")
	return nil
}

func (c *Consumer) processMessage(msg jetstream.Msg) error {
	var env envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		return fmt.Errorf("unmarshal relay envelope: %w", err)
	}

	// This instance already delivered its own fan-out locally.
	if env.Instance == c.config.InstanceID {
		return nil
	}

	var event gateway.Event
	if err := json.Unmarshal(env.Event, &event); err != nil {
		return fmt.Errorf("unmarshal relayed event: %w", err)
	}

	switch env.Scope {
	case "user":
		userID, err := uuid.Parse(env.UserID)
		if err != nil {
			return fmt.Errorf("parse relayed user id: %w", err)
		}
		c.registry.Broadcast(userID, &event)

	case "room":
		roomID, err := uuid.Parse(env.RoomID)
		if err != nil {
			return fmt.Errorf("parse relayed room id: %w", err)
		}
		c.rooms.BroadcastToRoom(gateway.RoomKey{
			Kind: gateway.RoomKind(env.RoomKind),
			ID:   roomID,
		}, &event, nil)

	default:
		return fmt.Errorf("unknown relay scope: %s", env.Scope)
	}

	return nil
}

// Close shuts down the NATS connection
func (c *Consumer) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
