// Package kafka publishes turn events to a Kafka topic with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/eventstream"
)

// DefaultTopic receives turn events when Config.Topic is empty.
const DefaultTopic = "graphchat.turns"

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Defaults to 10s.
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implements eventstream.Publisher on Kafka. Events are keyed by
// session id so a session's events stay ordered within a partition.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.Logger
}

var _ eventstream.Publisher = (*Publisher)(nil)

// NewPublisher creates a Kafka publisher. No connection is made until the
// first publish.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, c.WriteTimeout, logger), nil
}

func newPublisher(w messageWriter, timeout time.Duration, logger *zap.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{writer: w, timeout: timeout, logger: logger}
}

// PublishTurn writes the event as JSON.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnPersistedEvent) error {
	if err := eventstream.Validate(event); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding turn event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(event.Turn.SessionID),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing turn event: %w", err)
	}

	p.logger.Debug("published turn event",
		zap.String("event_id", event.EventID),
		zap.String("session_id", event.Turn.SessionID),
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
