// Command consumer reads weather records from Kafka and upserts them into
// Postgres. It also serves the read-side query API over the stored records.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/weather-forecast-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/adapter/postgres"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/config"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/consumer"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	reader := kafkaadapter.NewReader(cfg, logger)
	c := consumer.New(reader, store, logger, metrics)

	// Block until Postgres accepts connections; the database usually starts
	// alongside this process and takes a few seconds to come up.
	if err := c.WaitForStorage(ctx, cfg.StorageRetryDelay); err != nil {
		logger.Error("storage wait aborted", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	app := httpapi.NewQueryApp(store, logger)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := c.Run(ctx); err != nil {
			logger.Error("consumer error", "error", err)
		}
	}()

	logger.Info("consumer started", "addr", cfg.HTTPAddr, "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}

	logger.Info("shutdown complete")
}
