package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/config"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/consumer"
)

// Reader consumes messages from the stream topic as part of a consumer group,
// starting from the earliest offset on first subscription. Offsets are
// committed explicitly after each message is handled.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a group consumer for the configured topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     cfg.KafkaGroupID,
		Topic:       cfg.KafkaTopic,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, logger: logger}
}

// Fetch blocks until the next message is available. The returned message's
// Commit advances the group offset past it.
func (r *Reader) Fetch(ctx context.Context) (consumer.Message, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return consumer.Message{}, err
	}
	return consumer.Message{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
