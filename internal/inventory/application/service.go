package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/orderflow/inventory-service/internal/inventory/domain"
	"github.com/orderflow/inventory-service/pkg/metrics"
)

// Topics names the two outcome destinations.
type Topics struct {
	Reserved string
	Rejected string
}

// Service implements the reservation engine and the cancellation
// compensation path. It holds no mutable state; every invocation is
// reentrant and safe to run from many consumer goroutines at once.
type Service struct {
	log    *slog.Logger
	ledger StockLedger
	dedup  DedupStore
	pub    OutcomePublisher
	topics Topics
}

func NewService(log *slog.Logger, ledger StockLedger, dedup DedupStore, pub OutcomePublisher, topics Topics) *Service {
	return &Service{log: log, ledger: ledger, dedup: dedup, pub: pub, topics: topics}
}

// CreateStock handles product-created signals. Duplicate signals are
// harmless: the upsert never clobbers an existing quantity.
func (s *Service) CreateStock(ctx context.Context, ev domain.ProductCreated) error {
	if ev.ProductID == "" {
		s.log.Warn("product-created without productId, dropping")
		return fmt.Errorf("product-created: %w", domain.ErrMalformedEvent)
	}
	if err := s.ledger.UpsertZero(ctx, ev.ProductID); err != nil {
		return fmt.Errorf("upsert stock for %s: %w", ev.ProductID, err)
	}
	s.log.Info("stock record created", "product_id", ev.ProductID)
	return nil
}

// DeleteStock handles product-deleted signals. Best effort: a missing row
// is already the desired state.
func (s *Service) DeleteStock(ctx context.Context, ev domain.ProductDeleted) error {
	if ev.ProductID == "" {
		s.log.Warn("product-deleted without productId, dropping")
		return fmt.Errorf("product-deleted: %w", domain.ErrMalformedEvent)
	}
	if err := s.ledger.DeleteByProductID(ctx, ev.ProductID); err != nil {
		return fmt.Errorf("delete stock for %s: %w", ev.ProductID, err)
	}
	s.log.Info("stock record deleted", "product_id", ev.ProductID)
	return nil
}

// ReserveStock processes one order-placed event. The conditional decrement
// is the reservation; there is no hold to release on success. A zero rows
// result means unknown product or insufficient quantity, both rejections.
func (s *Service) ReserveStock(ctx context.Context, ev domain.OrderPlaced) error {
	if ev.ProductID == "" || ev.Quantity <= 0 {
		s.log.Warn("rejecting malformed order-placed without touching ledger",
			"order_number", ev.OrderNumber, "product_id", ev.ProductID, "quantity", ev.Quantity)
		return s.publishOutcome(ctx, domain.ReservationOutcome{
			OrderNumber: ev.OrderNumber,
			ProductID:   ev.ProductID,
			Quantity:    ev.Quantity,
			Email:       ev.Email,
			FirstName:   ev.FirstName,
			LastName:    ev.LastName,
			Decision:    domain.DecisionRejected,
		})
	}

	affected, err := s.ledger.DecrementIfSufficient(ctx, ev.ProductID, ev.Quantity)
	if err != nil {
		return fmt.Errorf("decrement stock for %s: %w", ev.ProductID, err)
	}

	decision := domain.DecisionRejected
	if affected == 1 {
		decision = domain.DecisionReserved
	}
	s.log.Info("order-placed processed",
		"order_number", ev.OrderNumber, "product_id", ev.ProductID,
		"quantity", ev.Quantity, "decision", string(decision))

	return s.publishOutcome(ctx, domain.ReservationOutcome{
		OrderNumber: ev.OrderNumber,
		ProductID:   ev.ProductID,
		Quantity:    ev.Quantity,
		Email:       ev.Email,
		FirstName:   ev.FirstName,
		LastName:    ev.LastName,
		Decision:    decision,
	})
}

// RestoreStock processes one order-cancelled event. The transport delivers
// at least once, so the upstream messageID gates the credit: only the first
// sighting increments and publishes. Duplicates are acknowledged silently.
func (s *Service) RestoreStock(ctx context.Context, ev domain.OrderCancelled, messageID string) error {
	if messageID == "" {
		s.log.Warn("order-cancelled without messageId header, dropping",
			"order_number", ev.OrderNumber)
		return fmt.Errorf("order-cancelled: %w", domain.ErrMalformedEvent)
	}
	if ev.ProductID == "" || ev.Quantity <= 0 {
		s.log.Warn("order-cancelled with malformed payload, dropping",
			"order_number", ev.OrderNumber, "product_id", ev.ProductID, "quantity", ev.Quantity)
		return fmt.Errorf("order-cancelled: %w", domain.ErrMalformedEvent)
	}

	first, err := s.dedup.FirstSighting(ctx, messageID)
	if err != nil {
		return fmt.Errorf("dedup check for %s: %w", messageID, err)
	}
	if !first {
		metrics.DuplicatesDropped.Inc()
		s.log.Info("duplicate order-cancelled skipped",
			"order_number", ev.OrderNumber, "message_id", messageID)
		return nil
	}

	if err := s.ledger.Increment(ctx, ev.ProductID, ev.Quantity); err != nil {
		// The marker is already set; redeliveries inside the dedup TTL
		// will be dropped, so surface the error for transport retry.
		return fmt.Errorf("restore stock for %s: %w", ev.ProductID, err)
	}
	s.log.Info("stock restored after cancellation",
		"order_number", ev.OrderNumber, "product_id", ev.ProductID, "quantity", ev.Quantity)

	return s.publishOutcome(ctx, domain.ReservationOutcome{
		OrderNumber: ev.OrderNumber,
		ProductID:   ev.ProductID,
		Quantity:    ev.Quantity,
		Email:       ev.Email,
		FirstName:   ev.FirstName,
		LastName:    ev.LastName,
		Decision:    domain.DecisionRejected,
	})
}

func (s *Service) publishOutcome(ctx context.Context, out domain.ReservationOutcome) error {
	if out.Decision == domain.DecisionReserved {
		ev := domain.InventoryReserved{
			OrderNumber: out.OrderNumber,
			Email:       out.Email,
			FirstName:   out.FirstName,
			LastName:    out.LastName,
		}
		if err := s.pub.Publish(ctx, s.topics.Reserved, out.OrderNumber, ev); err != nil {
			return fmt.Errorf("publish reserved outcome for %s: %w", out.OrderNumber, err)
		}
		return nil
	}
	ev := domain.InventoryRejected{
		OrderNumber: out.OrderNumber,
		Email:       out.Email,
		FirstName:   out.FirstName,
		LastName:    out.LastName,
	}
	if err := s.pub.Publish(ctx, s.topics.Rejected, out.OrderNumber, ev); err != nil {
		return fmt.Errorf("publish rejected outcome for %s: %w", out.OrderNumber, err)
	}
	return nil
}

// Query surface for the HTTP layer.

func (s *Service) IsInStock(ctx context.Context, productID string, quantity int) (bool, error) {
	return s.ledger.IsInStock(ctx, productID, quantity)
}

func (s *Service) GetByProductID(ctx context.Context, productID string) (domain.StockRecord, error) {
	return s.ledger.FindByProductID(ctx, productID)
}

func (s *Service) UpdateByProductID(ctx context.Context, productID string, quantity int) (domain.StockRecord, error) {
	return s.ledger.UpdateQuantity(ctx, productID, quantity)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.StockRecord, error) {
	return s.ledger.List(ctx)
}
