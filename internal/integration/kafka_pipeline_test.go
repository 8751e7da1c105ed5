//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/weather-forecast-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/config"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/consumer"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/domain"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/observability"
)

const testTopic = "weather-data-test"

// startKafka launches a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig builds a config pointed at the container broker. Replication
// factor is 1 because the test cluster has a single broker.
func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:           []string{broker},
		KafkaTopic:             testTopic,
		KafkaGroupID:           group,
		TopicPartitions:        3,
		TopicReplicationFactor: 1,
		KafkaConnectAttempts:   10,
		KafkaConnectDelay:      2 * time.Second,
	}
}

// memStore collects upserted records in memory, keyed by the natural key, so
// tests can assert on persisted state without Postgres.
type memStore struct {
	mu      sync.Mutex
	records map[string]domain.WeatherRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]domain.WeatherRecord)}
}

func (s *memStore) Upsert(_ context.Context, rec domain.WeatherRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[domain.MessageKey(rec.City, rec.Country, rec.Date)] = rec
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memStore) get(key string) (domain.WeatherRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok
}

// TestPublishFetchRoundTrip verifies topic provisioning plus the Writer and
// Reader adapters against a real broker: a published batch comes back with
// the same keys and payloads, and commits advance the group offset.
func TestPublishFetchRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	cfg := testConfig(broker, fmt.Sprintf("test-roundtrip-%d", time.Now().UnixNano()))

	require.NoError(t, kafkaadapter.EnsureTopic(ctx, cfg, discardLogger()))

	// Provisioning again must be a no-op, not an error.
	require.NoError(t, kafkaadapter.EnsureTopic(ctx, cfg, discardLogger()))

	batch := domain.FallbackRecords("London", "UK")
	require.Len(t, batch, domain.ForecastDays)

	metrics := observability.NewMetricsForTesting()
	writer := kafkaadapter.NewWriter(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	n, err := writer.Publish(ctx, "London", "UK", batch)
	require.NoError(t, err)
	require.Equal(t, domain.ForecastDays, n)

	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	received := make(map[string]domain.WeatherRecord, len(batch))
	for len(received) < len(batch) {
		msg, err := reader.Fetch(ctx)
		require.NoError(t, err, "fetch from topic")

		var rec domain.WeatherRecord
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		assert.Equal(t, domain.MessageKey("London", "UK", rec.Date), string(msg.Key))
		received[string(msg.Key)] = rec

		require.NoError(t, msg.Commit(ctx))
	}

	for _, want := range batch {
		got, ok := received[domain.MessageKey(want.City, want.Country, want.Date)]
		require.True(t, ok, "missing record for %s", want.Date)
		assert.Equal(t, want, got)
	}
}

// TestConsumerPersistsFromBroker runs the consumer loop against a real broker
// and asserts every published record reaches the store exactly once, with a
// malformed message dropped along the way.
func TestConsumerPersistsFromBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	cfg := testConfig(broker, fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()))

	require.NoError(t, kafkaadapter.EnsureTopic(ctx, cfg, discardLogger()))

	metrics := observability.NewMetricsForTesting()
	writer := kafkaadapter.NewWriter(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	// A poison pill first: the consumer must drop it, commit past it, and
	// keep going.
	poison := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testTopic}
	t.Cleanup(func() { _ = poison.Close() })
	require.NoError(t, poison.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("bad"),
		Value: []byte("not-json{{{"),
	}))

	batch := domain.FallbackRecords("Paris", "France")
	_, err := writer.Publish(ctx, "Paris", "France", batch)
	require.NoError(t, err)

	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	store := newMemStore()
	c := consumer.New(reader, store, discardLogger(), metrics)

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(runCtx) }()

	require.Eventually(t, func() bool {
		return store.count() == len(batch)
	}, 90*time.Second, 500*time.Millisecond, "waiting for records to persist")

	stop()
	require.NoError(t, <-errCh)

	rec, ok := store.get(domain.MessageKey("Paris", "France", batch[0].Date))
	require.True(t, ok)
	assert.Equal(t, domain.FallbackDescription, rec.Description)
}
