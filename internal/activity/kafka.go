// Package activity forwards poll activity to Kafka for downstream consumers.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quickpoll/backend/pkg/queue"
)

// KafkaPublisher writes poll activity keyed by poll id, so one poll's events stay on one partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
		Compression:  kafka.Snappy,
	}
	return &KafkaPublisher{writer: w}
}

// Forward publishes one activity.
func (p *KafkaPublisher) Forward(ctx context.Context, a queue.PollActivityPayload) error {
	msg, err := message(a)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write activity to kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

func message(a queue.PollActivityPayload) (kafka.Message, error) {
	value, err := json.Marshal(a)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal activity: %w", err)
	}
	return kafka.Message{
		Key:   []byte(a.PollID.String()),
		Value: value,
		Time:  a.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(a.Kind)},
		},
	}, nil
}
