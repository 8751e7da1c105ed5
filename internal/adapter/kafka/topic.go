package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/config"
)

// EnsureTopic connects to the cluster and declares the stream topic with the
// configured partition count and replication factor, retrying with a fixed
// delay up to the configured attempt limit. A topic that already exists is
// success. Exhausting all attempts returns an error the caller treats as
// fatal: the producer must not start without a reachable transport.
func EnsureTopic(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.KafkaConnectAttempts; attempt++ {
		if err := createTopic(ctx, cfg); err != nil {
			lastErr = err
			logger.Error("kafka connection attempt failed",
				"attempt", attempt, "max_attempts", cfg.KafkaConnectAttempts, "error", err)

			if attempt == cfg.KafkaConnectAttempts {
				break
			}
			logger.Info("retrying kafka connection", "delay", cfg.KafkaConnectDelay)
			if !sleepWithContext(ctx, cfg.KafkaConnectDelay) {
				return ctx.Err()
			}
			continue
		}

		logger.Info("kafka topic ready",
			"topic", cfg.KafkaTopic,
			"partitions", cfg.TopicPartitions,
			"replication_factor", cfg.TopicReplicationFactor)
		return nil
	}

	return fmt.Errorf("kafka unreachable after %d attempts: %w", cfg.KafkaConnectAttempts, lastErr)
}

func createTopic(ctx context.Context, cfg *config.Config) error {
	conn, err := kafkago.DialContext(ctx, "tcp", cfg.KafkaBrokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	// Topic creation must go to the controller broker.
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("resolve controller: %w", err)
	}

	controllerConn, err := kafkago.DialContext(ctx, "tcp",
		fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             cfg.KafkaTopic,
		NumPartitions:     cfg.TopicPartitions,
		ReplicationFactor: cfg.TopicReplicationFactor,
	})
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", cfg.KafkaTopic, err)
	}
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
