package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/inventory-service/internal/inventory/application"
	"github.com/orderflow/inventory-service/internal/inventory/domain"
)

// Handlers for the four inbound topics. Unmarshal failures are permanent:
// replaying a malformed payload cannot succeed.

func ProductCreatedHandler(svc *application.Service) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev domain.ProductCreated
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode product-created: %v: %w", err, domain.ErrMalformedEvent)
		}
		return svc.CreateStock(ctx, ev)
	}
}

func ProductDeletedHandler(svc *application.Service) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev domain.ProductDeleted
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode product-deleted: %v: %w", err, domain.ErrMalformedEvent)
		}
		return svc.DeleteStock(ctx, ev)
	}
}

func OrderPlacedHandler(svc *application.Service) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev domain.OrderPlaced
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode order-placed: %v: %w", err, domain.ErrMalformedEvent)
		}
		return svc.ReserveStock(ctx, ev)
	}
}

func OrderCancelledHandler(svc *application.Service) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev domain.OrderCancelled
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode order-cancelled: %v: %w", err, domain.ErrMalformedEvent)
		}
		messageID := HeaderValue(msg.Headers, MessageIDHeader)
		return svc.RestoreStock(ctx, ev, messageID)
	}
}
