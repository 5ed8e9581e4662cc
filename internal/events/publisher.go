// Package events publishes marketplace events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event names.
const (
	FreightPublished = "freight.published"
	ReferralRecorded = "referral.recorded"
	AgentRegistered  = "agent.registered"
)

// Envelope wraps every event payload.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Writer is the subset of kafka.Writer used by the producer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is used by services to emit events.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, data interface{}) error
	Close() error
}

// KafkaPublisher writes JSON envelopes keyed by entity id.
type KafkaPublisher struct {
	writer Writer
	logger *zap.Logger
}

// NewKafkaPublisher connects a writer to the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(w, logger)
}

// NewKafkaPublisherWithWriter allows injecting a test writer.
func NewKafkaPublisherWithWriter(w Writer, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, data interface{}) error {
	b, err := json.Marshal(Envelope{Type: eventType, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   b,
		Headers: []kafka.Header{{Key: "type", Value: []byte(eventType)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	p.logger.Debug("event published", zap.String("type", eventType), zap.String("key", key))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                               { return nil }
