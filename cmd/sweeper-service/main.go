package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/gigworks/marketplace-core/internal/config"
	"github.com/gigworks/marketplace-core/internal/notify"
	"github.com/gigworks/marketplace-core/internal/payout"
	"github.com/gigworks/marketplace-core/internal/storage"
	"github.com/gigworks/marketplace-core/internal/sweep"
	"github.com/gigworks/marketplace-core/shared/logger"
	"github.com/gigworks/marketplace-core/shared/postgresql"
	"github.com/gigworks/marketplace-core/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("SWEEPER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/sweeper-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateSweeperConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting sweeper service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Wire sweepers
	store := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)
	notifier := notify.NewNotifier(rabbitClient, &cfg.RabbitMQ, appLogger.Logger)
	gateway := payout.NewHTTPGateway(&cfg.Gateway)
	payoutSvc := payout.NewService(store, gateway, notifier, &cfg.Payments, appLogger.Logger)

	releaseSweeper := sweep.NewReleaseSweeper(store, payoutSvc, &cfg.Scoring, &cfg.Payments, appLogger.Logger)
	transferSweeper := sweep.NewTransferSweeper(store, notifier, &cfg.Payments, appLogger.Logger)
	reporter := sweep.NewReporter(store, notifier, appLogger.Logger)

	// Ticks share one context; shutdown cancels in-flight work and
	// anything unfinished is picked up on the next tick.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()

	if _, err := scheduler.AddFunc(cfg.Sweeps.ReleaseSchedule, func() { releaseSweeper.Run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule release sweep: %w", err)
	}
	if _, err := scheduler.AddFunc(cfg.Sweeps.TransferExpirySchedule, func() { transferSweeper.Run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule transfer expiry sweep: %w", err)
	}
	if _, err := scheduler.AddFunc(cfg.Sweeps.ReportSchedule, func() { reporter.Run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule report run: %w", err)
	}

	scheduler.Start()

	appLogger.Info("Sweeper service is running",
		slog.String("release_schedule", cfg.Sweeps.ReleaseSchedule),
		slog.String("transfer_expiry_schedule", cfg.Sweeps.TransferExpirySchedule),
		slog.String("report_schedule", cfg.Sweeps.ReportSchedule),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down sweeper service...")

	cancel()
	stopped := scheduler.Stop()
	<-stopped.Done()

	if dbClient != nil {
		dbClient.Close()
	}
	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Sweeper service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ publisher client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		Exchange:          cfg.Exchange,
		RetryAttempts:     cfg.RetryAttempts,
		RetryInterval:     cfg.RetryInterval,
		Heartbeat:         cfg.Heartbeat,
		ConnectionTimeout: cfg.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
