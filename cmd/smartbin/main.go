// SmartBin Core - smart waste bin telemetry service
//
// This is the main entry point for the SmartBin Core application. It ingests
// fill-level, color, proximity and status telemetry from bin hardware over
// MQTT, keeps the area, device and bin registry in SQLite, and serves the
// REST API and WebSocket event stream used by dashboards.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/smartbin-core/internal/api"
	"github.com/nerrad567/smartbin-core/internal/audit"
	"github.com/nerrad567/smartbin-core/internal/device"
	"github.com/nerrad567/smartbin-core/internal/infrastructure/config"
	"github.com/nerrad567/smartbin-core/internal/infrastructure/database"
	"github.com/nerrad567/smartbin-core/internal/infrastructure/logging"
	"github.com/nerrad567/smartbin-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartbin-core/internal/lifecycle"
	"github.com/nerrad567/smartbin-core/internal/location"
	"github.com/nerrad567/smartbin-core/internal/state"
	"github.com/nerrad567/smartbin-core/internal/telemetry"
	"github.com/nerrad567/smartbin-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
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

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting SmartBin Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories and domain services
	areaRepo := location.NewSQLiteRepository(db.DB)
	deviceRepo := device.NewSQLiteRepository(db.DB)
	binRepo := device.NewSQLiteBinRepository(db.DB)

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))

	updater := state.NewUpdater(deviceRepo, binRepo)
	updater.SetLogger(log.Component("state"))
	updater.SetNotifier(hub)

	coordinator, err := lifecycle.NewCoordinator(areaRepo, deviceRepo, binRepo, cfg.Telemetry.BinTypes)
	if err != nil {
		return fmt.Errorf("telemetry.bin_types: %w", err)
	}
	coordinator.SetLogger(log.Component("lifecycle"))
	auditRepo := audit.NewSQLiteRepository(db.DB)
	coordinator.SetAuditor(auditRepo)

	resolver := telemetry.NewResolver(deviceRepo, binRepo)
	resolver.SetLogger(log.Component("telemetry"))
	ingestor := telemetry.NewIngestor(resolver, updater)
	ingestor.SetLogger(log.Component("telemetry"))
	router := telemetry.NewRouter(ingestor)
	router.SetLogger(log.Component("telemetry"))
	router.RegisterLogOverrides(cfg.MQTT.TestTopics)

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	topics := append(append([]string{}, cfg.MQTT.Topics...), cfg.MQTT.TestTopics...)
	if subErr := mqttClient.SubscribeAll(topics, router.HandleMessage); subErr != nil {
		return fmt.Errorf("subscribing to telemetry: %w", subErr)
	}
	log.Info("subscribed to telemetry", "topics", len(topics))

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.Component("api"),
		Coordinator: coordinator,
		Updater:     updater,
		MQTT:        mqttClient,
		Audit:       auditRepo,
		DB:          db.DB,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Background tasks run until the shutdown signal.
	sweeper := telemetry.NewSweeper(deviceRepo, cfg.GetOfflineAfter(), cfg.GetSweepInterval())
	sweeper.SetLogger(log.Component("sweeper"))
	sweeper.SetNotifier(hub)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := g.Wait(); err != nil {
		log.Error("background task failed", "error", err)
	}

	log.Info("SmartBin Core stopped")
	return nil
}

// getConfigPath returns the config file path from SMARTBIN_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv("SMARTBIN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the database and broker are reachable.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}
