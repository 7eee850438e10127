package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/config"
	"github.com/couchcryptid/cyclone-watch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes risk assessments to a Kafka topic.
// It implements monitor.Publisher.
type Writer struct {
	writer *kafkago.Writer
	city   string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured assessment topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAssessmentTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, city: cfg.TargetCity, logger: logger}
}

// Publish serializes one assessment keyed by the monitored city, so every
// assessment for a city lands on the same partition in order.
func (w *Writer) Publish(ctx context.Context, a domain.Assessment) error {
	msg, err := serializeToMessage(w.city, a)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write assessment: %w", err)
	}
	w.logger.Debug("assessment published", "id", a.ID, "tier", a.Tier)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Assessment into a Kafka message.
func serializeToMessage(city string, a domain.Assessment) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(city),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_tier", Value: []byte(a.Tier.String())},
			{Key: "assessed_at", Value: []byte(a.AssessedAt.Format(time.RFC3339))},
		},
	}, nil
}
