package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Supported cache store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Imagery provider (street view renderer).
	StreetViewURL     string
	StreetViewTimeout time.Duration

	// Detection engine sidecar.
	InferenceURL     string
	InferenceTimeout time.Duration

	// Cache store backend.
	DBDriver    string
	SQLitePath  string
	DatabaseURL string

	// Optional detection-event publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	streetViewTimeout, err := parseDuration("STREETVIEW_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	inferenceTimeout, err := parseDuration("INFERENCE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StreetViewURL:     strings.TrimSuffix(os.Getenv("STREETVIEW_URL"), "/"),
		StreetViewTimeout: streetViewTimeout,

		InferenceURL:     strings.TrimSuffix(os.Getenv("INFERENCE_URL"), "/"),
		InferenceTimeout: inferenceTimeout,

		DBDriver:    envOrDefault("DB_DRIVER", DriverSQLite),
		SQLitePath:  envOrDefault("SQLITE_PATH", "detections.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "detection-events"),
	}

	if cfg.StreetViewURL == "" {
		return nil, errors.New("STREETVIEW_URL is required")
	}
	if cfg.InferenceURL == "" {
		return nil, errors.New("INFERENCE_URL is required")
	}
	switch cfg.DBDriver {
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required when DB_DRIVER is sqlite")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when DB_DRIVER is postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
