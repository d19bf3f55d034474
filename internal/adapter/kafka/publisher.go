// Package kafka publishes freshly persisted detection records for downstream
// consumers (route scoring, avoidance-zone builders).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/roadvision/stopsign-detector/internal/config"
	"github.com/roadvision/stopsign-detector/internal/domain"
)

// Publisher produces detection-event messages to a Kafka topic.
// It implements domain.RecordPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes one detection record and writes it to the topic. The
// message key is the cache key string, so all events for one location and
// heading land on the same partition.
func (p *Publisher) Publish(ctx context.Context, record domain.DetectionRecord) error {
	msg, err := serializeToMessage(record)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a DetectionRecord into a Kafka message.
func serializeToMessage(record domain.DetectionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize detection record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(record.Key.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "detected", Value: []byte(strconv.FormatBool(record.Detected))},
			{Key: "created_at", Value: []byte(record.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
