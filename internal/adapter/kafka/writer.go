package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crisis-dashboard/internal/config"
	"github.com/couchcryptid/crisis-dashboard/internal/domain"
)

// Publisher announces accepted help requests to responders on a Kafka topic.
// It implements helpdesk.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured help topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaHelpTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishHelpRequest writes one notification keyed by request id.
func (p *Publisher) PublishHelpRequest(ctx context.Context, req domain.HelpRequest) error {
	msg, err := serializeToMessage(req)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish help request %s: %w", req.ID, err)
	}
	p.logger.Debug("help request published", "id", req.ID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a HelpRequest into a Kafka message. Contact
// details travel in the value only, never in headers.
func serializeToMessage(req domain.HelpRequest) (kafkago.Message, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize help request: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(req.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "emergency_type", Value: []byte(req.EmergencyType)},
			{Key: "confidence", Value: []byte(req.Confidence)},
			{Key: "created_at", Value: []byte(req.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
