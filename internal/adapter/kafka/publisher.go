package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/trip-planner-service/internal/config"
	"github.com/couchcryptid/trip-planner-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces freshly resolved places to a Kafka topic.
// It implements resolver.Publisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// messageWriter is the subset of kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Each batch is handed over in one WriteMessages call, so the writer should
// not linger waiting for more.
const (
	batchTimeout = 10 * time.Millisecond
	maxAttempts  = 3
)

// NewPublisher creates a Kafka producer for the configured resolutions topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
		MaxAttempts:            maxAttempts,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one message per resolution in a single WriteMessages call.
// Messages are keyed by place name so updates for a place share a partition.
func (p *Publisher) Publish(ctx context.Context, resolutions []domain.PlaceResolution) error {
	if len(resolutions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(resolutions))
	for i := range resolutions {
		msg, err := serializeToMessage(resolutions[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d resolutions: %w", len(msgs), err)
	}
	p.logger.Debug("resolutions published", "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a PlaceResolution into a Kafka message.
func serializeToMessage(r domain.PlaceResolution) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize place resolution: %w", err)
	}
	outcome := "absent"
	if r.Resolution.Found {
		outcome = "found"
	}
	return kafkago.Message{
		Key:   []byte(r.Place),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "resolution", Value: []byte(outcome)},
			{Key: "resolved_at", Value: []byte(r.ResolvedAt.Format(time.RFC3339))},
		},
	}, nil
}
