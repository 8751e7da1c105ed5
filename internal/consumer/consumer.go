// Package consumer runs the long-lived stream-to-storage loop.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/domain"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/observability"
)

// fetchErrBackoff spaces out fetch retries so a broken transport does not
// spin the loop.
const fetchErrBackoff = time.Second

// Message is one inbound stream message plus its commit hook.
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Commit    func(ctx context.Context) error
}

// Source fetches the next message from the stream, blocking until one is
// available or the context is cancelled.
type Source interface {
	Fetch(ctx context.Context) (Message, error)
}

// Store persists normalized records and reports storage connectivity.
type Store interface {
	Upsert(ctx context.Context, rec domain.WeatherRecord) error
	Ping(ctx context.Context) error
}

// Consumer forwards decoded stream messages to the persistence layer.
// Delivery is at-least-once: persistence failures are logged but offsets
// still advance, and the idempotent upsert absorbs redelivery.
type Consumer struct {
	source  Source
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Consumer wiring the stream source to the record store.
func New(source Source, store Store, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	return &Consumer{
		source:  source,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// WaitForStorage blocks until the store answers a ping, retrying at the given
// fixed delay with no attempt limit. The consumer is a background service
// expected to wait out transient storage outages rather than fail fast.
func (c *Consumer) WaitForStorage(ctx context.Context, delay time.Duration) error {
	for {
		err := c.store.Ping(ctx)
		if err == nil {
			c.logger.Info("storage connection established")
			return nil
		}
		c.logger.Error("storage unreachable, retrying", "delay", delay, "error", err)

		if !sleepWithContext(ctx, delay) {
			return ctx.Err()
		}
	}
}

// Run executes the message loop until the context is cancelled. The in-flight
// message is always handled to completion; cancellation is observed between
// messages.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	c.metrics.ConsumerRunning.Set(1)
	defer c.metrics.ConsumerRunning.Set(0)

	for {
		msg, err := c.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch message failed", "error", err, "retry_in", fetchErrBackoff)
			if !sleepWithContext(ctx, fetchErrBackoff) {
				return nil
			}
			continue
		}

		// Handle to completion even if shutdown starts mid-message.
		c.handleMessage(context.WithoutCancel(ctx), msg)
	}
}

// handleMessage decodes, persists, and commits one message. Malformed
// payloads are dropped rather than requeued since the producer is a
// controlled internal service; a persistence failure does not block offset
// advancement.
func (c *Consumer) handleMessage(ctx context.Context, msg Message) {
	c.metrics.MessagesConsumed.Inc()

	var rec domain.WeatherRecord
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		c.logger.Warn("dropping malformed message",
			"error", err,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		c.metrics.DecodeErrors.Inc()
		c.commit(ctx, msg)
		return
	}

	c.logger.Info("received weather record",
		"city", rec.City, "country", rec.Country, "date", rec.Date)

	if err := c.store.Upsert(ctx, rec); err != nil {
		c.logger.Error("persist record failed",
			"error", err,
			"city", rec.City, "country", rec.Country, "date", rec.Date,
		)
		c.metrics.PersistErrors.Inc()
	} else {
		c.metrics.RecordsPersisted.Inc()
	}

	c.commit(ctx, msg)
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

func (c *Consumer) commit(ctx context.Context, msg Message) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		c.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}
