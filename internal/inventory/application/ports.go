package application

import (
	"context"

	"github.com/orderflow/inventory-service/internal/inventory/domain"
)

// StockLedger is the only writer of stock quantities. The conditional
// decrement must be a single atomic operation at the storage layer; it is
// what serializes concurrent reservations for the same product.
type StockLedger interface {
	DecrementIfSufficient(ctx context.Context, productID string, amount int) (int64, error)
	Increment(ctx context.Context, productID string, amount int) error
	UpsertZero(ctx context.Context, productID string) error
	DeleteByProductID(ctx context.Context, productID string) error
	FindByProductID(ctx context.Context, productID string) (domain.StockRecord, error)
	IsInStock(ctx context.Context, productID string, quantity int) (bool, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) (domain.StockRecord, error)
	List(ctx context.Context) ([]domain.StockRecord, error)
}

// DedupStore records inbound message IDs so a redelivered cancellation is
// credited at most once. FirstSighting is an atomic check-and-set: it
// returns true exactly once per messageID within the expiry window.
type DedupStore interface {
	FirstSighting(ctx context.Context, messageID string) (bool, error)
}

// OutcomePublisher hands outcome events to the transport. Implementations
// attach a fresh outbound message identifier to every message.
type OutcomePublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}
