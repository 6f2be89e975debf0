package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/pkg/kafka"
	"github.com/prohmpiriya/greenloop-event-service/pkg/retry"
	"github.com/prohmpiriya/greenloop-event-service/pkg/telemetry"
)

// Default topics
const (
	DefaultParticipationTopic = "gamification.event-participation"
	DefaultNotificationTopic  = "notifications.event"
)

// EventPublisher defines the interface for downstream signals
type EventPublisher interface {
	// PublishParticipation publishes the reward signal for an attendance
	PublishParticipation(ctx context.Context, msg *domain.ParticipationMessage) error

	// PublishNotification publishes a user notification
	PublishNotification(ctx context.Context, msg *domain.NotificationMessage) error

	// Close closes the event publisher
	Close() error
}

// messageProducer is the subset of *kafka.Producer the publisher uses
type messageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer           messageProducer
	participationTopic string
	notificationTopic  string
	serviceName        string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers            []string
	ParticipationTopic string
	NotificationTopic  string
	ServiceName        string
	ClientID           string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "event-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newKafkaEventPublisher(producer, cfg), nil
}

func newKafkaEventPublisher(producer messageProducer, cfg *EventPublisherConfig) *KafkaEventPublisher {
	p := &KafkaEventPublisher{
		producer:           producer,
		participationTopic: cfg.ParticipationTopic,
		notificationTopic:  cfg.NotificationTopic,
		serviceName:        cfg.ServiceName,
	}
	if p.participationTopic == "" {
		p.participationTopic = DefaultParticipationTopic
	}
	if p.notificationTopic == "" {
		p.notificationTopic = DefaultNotificationTopic
	}
	if p.serviceName == "" {
		p.serviceName = "event-service"
	}
	return p
}

// PublishParticipation publishes to the participation topic keyed by user
func (p *KafkaEventPublisher) PublishParticipation(ctx context.Context, msg *domain.ParticipationMessage) error {
	return p.publish(ctx, p.participationTopic, msg.UserID, "event_participation", msg, nil)
}

// PublishNotification publishes to the notification topic keyed by user
func (p *KafkaEventPublisher) PublishNotification(ctx context.Context, msg *domain.NotificationMessage) error {
	extra := map[string]string{"notification_type": string(msg.Type)}
	return p.publish(ctx, p.notificationTopic, msg.UserID, string(msg.Type), msg, extra)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) publish(ctx context.Context, topic, key, eventType string, payload interface{}, extra map[string]string) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal event: %w", err))
	}

	headers := telemetry.InjectTraceContext(ctx)
	headers["event_type"] = eventType
	headers["event_id"] = uuid.New().String()
	headers["source"] = p.serviceName
	headers["content_type"] = "application/json"
	for k, v := range extra {
		headers[k] = v
	}

	msg := &kafka.Message{
		Topic:     topic,
		Key:       []byte(key),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher, used when
// Kafka is disabled
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishParticipation is a no-op
func (p *NoOpEventPublisher) PublishParticipation(ctx context.Context, msg *domain.ParticipationMessage) error {
	return nil
}

// PublishNotification is a no-op
func (p *NoOpEventPublisher) PublishNotification(ctx context.Context, msg *domain.NotificationMessage) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
