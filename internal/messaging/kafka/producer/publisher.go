package producer

import (
	"context"

	"github.com/jesser-selmi/idos-front/internal/messaging/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

// MessageWriter is the part of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Publisher writes outbox events to kafka through a circuit breaker so a
// broker outage fails fast instead of stalling every poll.
type Publisher struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker
}

func NewPublisher(writer MessageWriter, breaker *gobreaker.CircuitBreaker) *Publisher {
	return &Publisher{writer: writer, breaker: breaker}
}

func (p *Publisher) Publish(ctx context.Context, event kafka.OutboxEvent) error {
	msg := buildMessage(event)
	if p.breaker == nil {
		return p.writer.WriteMessages(ctx, msg)
	}

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	return err
}

func buildMessage(event kafka.OutboxEvent) kafkago.Message {
	headers := []kafkago.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		{Key: "outbox_id", Value: []byte(event.ID)},
	}
	if event.RequestID != "" {
		headers = append(headers, kafkago.Header{Key: "request_id", Value: []byte(event.RequestID)})
	}

	return kafkago.Message{
		Topic:   event.Topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
}
