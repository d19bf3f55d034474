package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/roadvision/stopsign-detector/internal/adapter/http"
	"github.com/roadvision/stopsign-detector/internal/adapter/inference"
	kafkaadapter "github.com/roadvision/stopsign-detector/internal/adapter/kafka"
	"github.com/roadvision/stopsign-detector/internal/adapter/postgres"
	"github.com/roadvision/stopsign-detector/internal/adapter/sqlite"
	"github.com/roadvision/stopsign-detector/internal/adapter/streetview"
	"github.com/roadvision/stopsign-detector/internal/config"
	"github.com/roadvision/stopsign-detector/internal/domain"
	"github.com/roadvision/stopsign-detector/internal/observability"
	"github.com/roadvision/stopsign-detector/internal/service"
)

func main() {
	// Local development keeps settings in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open detection store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	provider := streetview.NewClient(cfg.StreetViewURL, cfg.StreetViewTimeout, logger)
	detector := inference.NewClient(cfg.InferenceURL, cfg.InferenceTimeout, logger)

	// Detection-event publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var publisher domain.RecordPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("detection-event publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("detection-event publishing disabled")
	}

	svc := service.New(store, provider, detector, publisher, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("detection store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openStore builds the configured cache store backend and ensures its schema.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.DetectionStore, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		store, err := sqlite.New(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	}
}
