package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testStreetViewURL = "http://localhost:9000"
	testInferenceURL  = "http://localhost:9001"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STREETVIEW_URL", testStreetViewURL)
	t.Setenv("INFERENCE_URL", testInferenceURL)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, testStreetViewURL, cfg.StreetViewURL)
	assert.Equal(t, 30*time.Second, cfg.StreetViewTimeout)
	assert.Equal(t, testInferenceURL, cfg.InferenceURL)
	assert.Equal(t, 30*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "detections.db", cfg.SQLitePath)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "detection-events", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("STREETVIEW_TIMEOUT", "5s")
	t.Setenv("INFERENCE_TIMEOUT", "45s")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/stopsigns")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-events")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.StreetViewTimeout)
	assert.Equal(t, 45*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/stopsigns", cfg.DatabaseURL)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-events", cfg.KafkaTopic)
}

func TestLoad_TrimsTrailingSlashFromBaseURLs(t *testing.T) {
	t.Setenv("STREETVIEW_URL", testStreetViewURL+"/")
	t.Setenv("INFERENCE_URL", testInferenceURL+"/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, testStreetViewURL, cfg.StreetViewURL)
	assert.Equal(t, testInferenceURL, cfg.InferenceURL)
}

func TestLoad_MissingStreetViewURL(t *testing.T) {
	t.Setenv("INFERENCE_URL", testInferenceURL)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STREETVIEW_URL")
}

func TestLoad_MissingInferenceURL(t *testing.T) {
	t.Setenv("STREETVIEW_URL", testStreetViewURL)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFERENCE_URL")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeStreetViewTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STREETVIEW_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STREETVIEW_TIMEOUT")
}

func TestLoad_UnsupportedDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DRIVER", "duckdb")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_KafkaBrokersImplyEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
