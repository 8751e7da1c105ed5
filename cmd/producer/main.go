// Command producer exposes the forecast trigger API. Each request resolves a
// location, fetches a seven-day forecast from Open-Meteo, and publishes the
// normalized records to Kafka, falling back to synthetic data when the
// upstream is unavailable.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/weather-forecast-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/config"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/observability"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The topic must exist with the configured partition count before the
	// first publish, otherwise auto-creation would pick broker defaults.
	if err := kafkaadapter.EnsureTopic(ctx, cfg, logger); err != nil {
		logger.Error("kafka topic provisioning failed", "error", err)
		os.Exit(1)
	}

	upstream := openmeteo.NewClient(cfg.GeocodingURL, cfg.ForecastURL, cfg.UpstreamTimeout, logger, metrics)
	forecasts := service.NewForecastService(upstream, upstream, logger, metrics)
	writer := kafkaadapter.NewWriter(cfg, logger, metrics)

	app := httpapi.NewProducerApp(forecasts, writer, logger)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("producer started", "addr", cfg.HTTPAddr, "topic", cfg.KafkaTopic)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
