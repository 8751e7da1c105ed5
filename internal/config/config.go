package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
// Producer and consumer binaries share the struct; each reads the fields
// relevant to its role.
type Config struct {
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Topic provisioning and startup connectivity.
	TopicPartitions        int
	TopicReplicationFactor int
	KafkaConnectAttempts   int
	KafkaConnectDelay      time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream Open-Meteo endpoints.
	GeocodingURL    string
	ForecastURL     string
	UpstreamTimeout time.Duration

	// Consumer-side storage.
	DatabaseURL       string
	StorageRetryDelay time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env file: %v", err)
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	connectDelay, err := parseDuration("KAFKA_CONNECT_DELAY", "5s")
	if err != nil {
		return nil, err
	}
	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	storageRetryDelay, err := parseDuration("STORAGE_RETRY_DELAY", "5s")
	if err != nil {
		return nil, err
	}

	partitions, err := parseInt("TOPIC_PARTITIONS", 3)
	if err != nil {
		return nil, err
	}
	replication, err := parseInt("TOPIC_REPLICATION_FACTOR", 3)
	if err != nil {
		return nil, err
	}
	connectAttempts, err := parseInt("KAFKA_CONNECT_ATTEMPTS", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "weather-data"),
		KafkaGroupID: envOrDefault("KAFKA_GROUP_ID", "weather-consumer-group"),

		TopicPartitions:        partitions,
		TopicReplicationFactor: replication,
		KafkaConnectAttempts:   connectAttempts,
		KafkaConnectDelay:      connectDelay,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeocodingURL:    envOrDefault("GEOCODING_URL", "https://geocoding-api.open-meteo.com/v1/search"),
		ForecastURL:     envOrDefault("FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		UpstreamTimeout: upstreamTimeout,

		DatabaseURL:       os.Getenv("DATABASE_URL"),
		StorageRetryDelay: storageRetryDelay,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.TopicPartitions < 1 {
		return nil, errors.New("TOPIC_PARTITIONS must be at least 1")
	}
	if cfg.TopicReplicationFactor < 1 {
		return nil, errors.New("TOPIC_REPLICATION_FACTOR must be at least 1")
	}
	if cfg.KafkaConnectAttempts < 1 {
		return nil, errors.New("KAFKA_CONNECT_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
