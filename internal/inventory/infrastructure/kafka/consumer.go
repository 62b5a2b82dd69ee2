package kafka

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/inventory-service/internal/inventory/domain"
	"github.com/orderflow/inventory-service/pkg/metrics"
	"github.com/orderflow/inventory-service/pkg/tracing"
)

// Bounded retry before dead-lettering, mirroring the upstream transport's
// fixed-backoff policy.
const (
	maxAttempts  = 3
	retryBackoff = time.Second
)

// Handler processes one inbound message. Returning an error wrapping
// domain.ErrMalformedEvent marks the message permanently unprocessable;
// any other error is treated as transient and retried.
type Handler func(ctx context.Context, msg kafka.Message) error

// Consumer runs one reader loop for one topic. Parallelism across topics
// comes from running several consumers; same-product races are serialized
// by the ledger, not here.
type Consumer struct {
	log      *slog.Logger
	reader   *kafka.Reader
	producer Producer
	handler  Handler
	tracer   trace.Tracer
	dlt      string
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, producer Producer, handler Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:      log,
		reader:   r,
		producer: producer,
		handler:  handler,
		tracer:   otel.Tracer("inventory-consumer"),
		dlt:      topic + ".dlt",
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "Consume "+msg.Topic)
		c.process(msgCtx, msg)
		span.End()

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "topic", msg.Topic, "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = c.handler(ctx, msg)
		if err == nil {
			return
		}
		if errors.Is(err, domain.ErrMalformedEvent) {
			c.log.Warn("unprocessable message dropped",
				"topic", msg.Topic, "offset", msg.Offset, "err", err)
			return
		}
		c.log.Error("message handling failed",
			"topic", msg.Topic, "offset", msg.Offset, "attempt", attempt, "err", err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
		}
	}
	c.deadLetter(ctx, msg, err)
}

// deadLetter forwards the raw message to <topic>.dlt with the original
// coordinates and failure reason in headers, then lets the caller commit.
func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	headers := append(msg.Headers,
		kafka.Header{Key: "x-original-topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "x-original-partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "x-original-offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "x-error", Value: []byte(cause.Error())},
	)
	dead := kafka.Message{
		Topic:   c.dlt,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := c.producer.WriteMessages(ctx, dead); err != nil {
		c.log.Error("dead letter publish failed, message lost",
			"topic", msg.Topic, "offset", msg.Offset, "err", err)
		return
	}
	metrics.DeadLettered.WithLabelValues(msg.Topic).Inc()
	c.log.Error("message dead-lettered",
		"topic", msg.Topic, "offset", msg.Offset, "dlt", c.dlt, "err", cause)
}

// HeaderValue returns the value of the first header with the given key.
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
