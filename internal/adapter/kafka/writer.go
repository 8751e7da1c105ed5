// Package kafka adapts the stream transport: topic provisioning at startup,
// the record publisher, and the consumer-side reader.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/config"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/domain"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/observability"
)

// Writer produces weather records to the stream topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured topic. The Hash
// balancer routes by message key, so one location's week of records lands on
// a single partition in send order.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Publish serializes and sends each record sequentially, returning the number
// delivered. Message keys are built from the requested city and country, not
// the canonical names a record may carry, so one request's week of records
// always shares a key prefix. A failure stops the batch but does not undo
// prior sends; the idempotent upsert downstream absorbs a later retry of the
// full batch.
func (w *Writer) Publish(ctx context.Context, city, country string, records []domain.WeatherRecord) (int, error) {
	start := time.Now()
	defer func() {
		w.metrics.PublishDuration.Observe(time.Since(start).Seconds())
	}()

	for i, rec := range records {
		msg, err := serializeRecord(rec, city, country)
		if err != nil {
			w.metrics.PublishErrors.Inc()
			return i, err
		}
		if err := w.writer.WriteMessages(ctx, msg); err != nil {
			w.metrics.PublishErrors.Inc()
			return i, fmt.Errorf("publish record %s: %w", string(msg.Key), err)
		}
		w.metrics.RecordsPublished.Inc()
	}
	return len(records), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeRecord marshals a WeatherRecord into a keyed Kafka message. The
// key carries the requested city/country strings; the payload may hold the
// geocoder's canonical names instead.
func serializeRecord(rec domain.WeatherRecord, city, country string) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(domain.MessageKey(city, country, rec.Date)),
		Value: data,
	}, nil
}
