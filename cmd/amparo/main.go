// Amparo Core - fall detection backend
//
// This is the main entry point for the Amparo Core service: the
// device-facing backend that provisions wearable fall detectors,
// ingests their events, and fans alerts out to caregivers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/amparo-saude/amparo-core/migrations"

	"github.com/amparo-saude/amparo-core/internal/api"
	"github.com/amparo-saude/amparo-core/internal/care"
	"github.com/amparo-saude/amparo-core/internal/device"
	"github.com/amparo-saude/amparo-core/internal/event"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/config"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/database"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/logging"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/mqtt"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/telemetry"
	"github.com/amparo-saude/amparo-core/internal/notify"
	"github.com/amparo-saude/amparo-core/internal/pairing"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Amparo Core", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and run migrations
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Repositories
	deviceRepo := device.NewSQLiteRepository(db.DB)
	careRepo := care.NewSQLiteRepository(db.DB)
	eventRepo := event.NewSQLiteRepository(db.DB)

	// Domain services
	registry := device.NewRegistry(deviceRepo, log.With("component", "registry"))
	authenticator := device.NewAuthenticator(deviceRepo, cfg.Security.AuthScanLimit)
	coordinator := pairing.NewCoordinator(deviceRepo, careRepo, log.With("component", "pairing"))

	// Notification channel selection
	channel, channelClose, err := buildChannel(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer channelClose()

	fanout := notify.NewFanout(notify.FanoutConfig{
		Links:          careRepo,
		Channel:        channel,
		Workers:        cfg.Notify.Workers,
		AttemptTimeout: time.Duration(cfg.Notify.AttemptTimeout) * time.Second,
		Logger:         log.With("component", "notify"),
	})

	// Optional InfluxDB telemetry
	var telemetryWriter event.TelemetryWriter
	influx, err := telemetry.Connect(ctx, cfg.Telemetry, log)
	switch {
	case err == nil:
		defer influx.Close()
		telemetryWriter = influx
		log.Info("telemetry connected", "url", cfg.Telemetry.URL)
	case errors.Is(err, telemetry.ErrDisabled):
		log.Info("telemetry disabled")
	default:
		// The service works without telemetry; do not refuse to start.
		log.Warn("telemetry unavailable", "error", err)
	}

	pipeline := event.NewPipeline(event.PipelineConfig{
		Events:      eventRepo,
		Devices:     deviceRepo,
		Retention:   event.NewRetentionManager(eventRepo, cfg.Ingestion.MaxEventsPerDevice, log.With("component", "retention")),
		Dispatch:    fanout,
		Telemetry:   telemetryWriter,
		PostTimeout: time.Duration(cfg.Ingestion.PostIngestTimeout) * time.Second,
		Logger:      log.With("component", "ingest"),
	})

	// HTTP API
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		Security:    cfg.Security,
		Pairing:     cfg.Pairing,
		Logger:      log.With("component", "api"),
		Registry:    registry,
		Resolver:    authenticator,
		Coordinator: coordinator,
		Pipeline:    pipeline,
		Events:      eventRepo,
		Links:       careRepo,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("Amparo Core running", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// buildChannel creates the configured alert delivery channel and a
// cleanup function.
func buildChannel(ctx context.Context, cfg *config.Config, log *logging.Logger) (notify.Channel, func(), error) {
	switch cfg.Notify.Channel {
	case "mqtt":
		broker, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)
		return notify.NewMQTTChannel(broker), func() {
			log.Info("disconnecting from MQTT")
			if err := broker.Close(); err != nil {
				log.Error("error closing MQTT", "error", err)
			}
		}, nil

	case "fcm":
		channel, err := notify.NewFCMChannel(ctx, cfg.Notify.FCMCredentials)
		if err != nil {
			return nil, nil, fmt.Errorf("initialising FCM: %w", err)
		}
		log.Info("FCM channel initialised")
		return channel, func() {}, nil

	default:
		log.Warn("no notification channel configured, alerts will not be delivered")
		return notify.NopChannel{}, func() {}, nil
	}
}

// getConfigPath returns the configuration file path from argv or the
// default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return defaultConfigPath
}
