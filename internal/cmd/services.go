package main

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/tempotrack/tempo/internal/gateway"
	"github.com/tempotrack/tempo/internal/identity"
	"github.com/tempotrack/tempo/internal/relay"
	"github.com/tempotrack/tempo/internal/timer"
	timerdb "github.com/tempotrack/tempo/internal/timer/db"
)

type Services struct {
	Timer         *timer.App
	Identity      *identity.Resolver
	Gateway       *gateway.Service
	RelayConsumer *relay.Consumer
	RelayCloser   func()
}

func setupServices(database *sql.DB, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Gateway
	clock := clockwork.NewRealClock()

	queries := timerdb.New(database)
	timerRepo := timer.NewRepository(queries, database)
	timerApp := timer.NewAppWithClock(timerRepo, clock)

	resolver := identity.NewResolver(timerApp)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.TickInterval = config.tickInterval()
	gatewayService := gateway.NewService(gatewayConfig, timerApp, resolver, timerApp, clock)

	services := &Services{
		Timer:    timerApp,
		Identity: resolver,
		Gateway:  gatewayService,
	}

	if config.Relay.Enabled {
		relayConfig := relay.DefaultConsumerConfig()
		relayConfig.URL = config.Relay.URL

		publisher, err := relay.NewPublisher(relayConfig.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create relay publisher: %w", err)
		}
		gatewayService.SetRemotePublisher(publisher)

		consumer, err := relay.NewConsumer(gatewayService.Registry(), gatewayService.Rooms(), relayConfig)
		if err != nil {
			publisher.Close()
			return nil, fmt.Errorf("failed to create relay consumer: %w", err)
		}

		services.RelayConsumer = consumer
		services.RelayCloser = func() {
			consumer.Close()
			publisher.Close()
		}
	}

	return services, nil
}
