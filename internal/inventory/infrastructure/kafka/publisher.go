package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/orderflow/inventory-service/pkg/metrics"
	"github.com/orderflow/inventory-service/pkg/tracing"
)

// MessageIDHeader carries the outbound message identifier consumers use
// for their own deduplication. It is unrelated to any inbound messageId.
const MessageIDHeader = "messageId"

// Producer is the slice of kafka.Writer the publisher needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher hands outcome events to the transport. Each message gets a
// freshly generated messageId header and the current trace context. No
// retry here; failures propagate to the caller.
type Publisher struct {
	log      *slog.Logger
	producer Producer
}

func NewPublisher(log *slog.Logger, producer Producer) *Publisher {
	return &Publisher{log: log, producer: producer}
}

func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outcome for topic %s: %w", topic, err)
	}

	messageID := uuid.NewString()
	headers := []kafka.Header{{Key: MessageIDHeader, Value: []byte(messageID)}}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	}
	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("outcome publish failed", "topic", topic, "key", key, "err", err)
		return err
	}
	metrics.OutcomesPublished.WithLabelValues(topic).Inc()
	p.log.Info("outcome published", "topic", topic, "key", key, "message_id", messageID)
	return nil
}
