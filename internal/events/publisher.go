package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher defines the interface for publishing proctoring messages
type EventPublisher interface {
	PublishIntegrityEvent(ctx context.Context, msg *ProctoringMessage) error
	PublishSessionEnded(ctx context.Context, msg *ProctoringMessage) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

func (p *KafkaEventPublisher) PublishIntegrityEvent(ctx context.Context, msg *ProctoringMessage) error {
	return p.publish(ctx, msg)
}

func (p *KafkaEventPublisher) PublishSessionEnded(ctx context.Context, msg *ProctoringMessage) error {
	return p.publish(ctx, msg)
}

func (p *KafkaEventPublisher) publish(ctx context.Context, event *ProctoringMessage) error {
	wm, err := NewWatermillMessage(event)
	if err != nil {
		return err
	}
	wm.SetContext(ctx)

	if err := p.publisher.Publish(p.topicName, wm); err != nil {
		p.logger.Error("Failed to publish proctoring message",
			"message_id", event.ID,
			"event_type", event.Type,
			"session_id", event.SessionID,
			"error", err)
		return fmt.Errorf("failed to publish proctoring message: %w", err)
	}

	p.logger.Info("Published proctoring message",
		"message_id", event.ID,
		"event_type", event.Type,
		"session_id", event.SessionID,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// NewWatermillMessage encodes the envelope and copies its routing fields into the message metadata
func NewWatermillMessage(event *ProctoringMessage) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal proctoring message: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("session_id", event.SessionID)
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))
	return msg, nil
}

// MockEventPublisher keeps published messages in memory
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []ProctoringMessage
	Logger *slog.Logger
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]ProctoringMessage, 0),
		Logger: logger,
	}
}

func (m *MockEventPublisher) PublishIntegrityEvent(ctx context.Context, msg *ProctoringMessage) error {
	return m.record(msg)
}

func (m *MockEventPublisher) PublishSessionEnded(ctx context.Context, msg *ProctoringMessage) error {
	return m.record(msg)
}

func (m *MockEventPublisher) record(msg *ProctoringMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = append(m.Events, *msg)
	m.Logger.Debug("Mock: Published proctoring message",
		"message_id", msg.ID,
		"event_type", msg.Type,
		"session_id", msg.SessionID)
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of all published messages
func (m *MockEventPublisher) GetPublishedEvents() []ProctoringMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ProctoringMessage, len(m.Events))
	copy(out, m.Events)
	return out
}

// ClearEvents clears all published messages
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = make([]ProctoringMessage, 0)
}
