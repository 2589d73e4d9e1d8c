package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/minisoc-systems/minisoc/internal/config"
	"github.com/minisoc-systems/minisoc/internal/detection"
	"github.com/minisoc-systems/minisoc/internal/handlers"
	"github.com/minisoc-systems/minisoc/internal/logging"
	"github.com/minisoc-systems/minisoc/internal/nats"
	"github.com/minisoc-systems/minisoc/internal/repository"
	"github.com/minisoc-systems/minisoc/internal/server"
	"github.com/minisoc-systems/minisoc/internal/service"
	"github.com/minisoc-systems/minisoc/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrationsPath := flag.String("migrations", "file://migrations", "path to migration files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	logging.SetDefault(logger)

	ctx := context.Background()

	events, alerts, err := buildStores(ctx, cfg, *migrationsPath, logger)
	if err != nil {
		logger.Error("failed to initialize stores", "error", err)
		os.Exit(1)
	}
	defer alerts.Close()

	var notifier detection.Notifier
	if cfg.NATS.Enabled {
		natsCfg := nats.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		client, err := nats.NewClient(natsCfg)
		if err != nil {
			logger.Error("failed to connect to NATS", "url", cfg.NATS.URL, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		notifier = nats.NewPublisher(client)
		logger.Info("alert notifications enabled", "url", cfg.NATS.URL)
	}

	rules, err := buildRules(cfg)
	if err != nil {
		logger.Error("failed to load detection rules", "error", err)
		os.Exit(1)
	}

	detector := detection.NewDetector(events, alerts, notifier, rules, logger)
	scheduler := detection.NewScheduler(detector, cfg.Detection.Interval, logger)

	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	go scheduler.Start(schedCtx)

	svc := service.NewService(events, alerts)
	handler := handlers.NewHandler(svc, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("minisoc listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// buildStores wires the event and alert stores. With dev.in_memory_stores
// set, both run in process and no external services are required.
func buildStores(ctx context.Context, cfg *config.Config, migrationsPath string, logger *logging.Logger) (repository.EventStore, repository.AlertRepository, error) {
	if cfg.Dev.InMemoryStores {
		logger.Warn("using in-memory stores, data will not survive a restart")
		return repository.NewInMemoryEventStore(), repository.NewInMemoryAlertRepository(), nil
	}

	connString := cfg.Database.Postgres.ConnString()

	logger.Info("running database migrations")
	m, err := migrate.New(migrationsPath, connString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	alerts, err := repository.NewPostgresAlertRepository(ctx, connString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	events, err := storage.NewEventStore(storage.Config{
		URL:           cfg.Storage.URL,
		Username:      cfg.Storage.Username,
		Password:      cfg.Storage.Password,
		Insecure:      cfg.Storage.Insecure,
		IndexPrefix:   cfg.Storage.IndexPrefix,
		RetentionDays: cfg.Storage.RetentionDays,
	})
	if err != nil {
		alerts.Close()
		return nil, nil, fmt.Errorf("failed to connect to OpenSearch: %w", err)
	}
	if err := events.Initialize(ctx); err != nil {
		alerts.Close()
		return nil, nil, fmt.Errorf("failed to initialize event storage: %w", err)
	}

	return events, alerts, nil
}

// buildRules loads detection rules from the configured file, falling back to
// the built-in brute-force rule with config overrides applied.
func buildRules(cfg *config.Config) ([]detection.Rule, error) {
	if cfg.Detection.RulesFile != "" {
		return detection.LoadRules(cfg.Detection.RulesFile)
	}

	rule := detection.SSHBruteForceRule()
	if cfg.Detection.Window > 0 {
		rule.Window = cfg.Detection.Window
	}
	if cfg.Detection.Threshold > 0 {
		rule.Threshold = cfg.Detection.Threshold
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return []detection.Rule{rule}, nil
}
