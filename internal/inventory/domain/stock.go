package domain

import "errors"

var (
	// ErrNotFound is returned by read paths when no stock record exists
	// for the requested product.
	ErrNotFound = errors.New("stock record not found")

	// ErrMalformedEvent marks an inbound event that can never be
	// processed successfully; consumers must not retry it.
	ErrMalformedEvent = errors.New("malformed event")
)

// StockRecord is the persisted available quantity for one product.
// Quantity never goes below zero; the ledger enforces that with a
// conditional update, not with application-side checks.
type StockRecord struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Decision string

const (
	DecisionReserved Decision = "reserved"
	DecisionRejected Decision = "rejected"
)

// ReservationOutcome is the transient result of one order-placed attempt.
// It is handed straight to the publisher and never stored.
type ReservationOutcome struct {
	OrderNumber string
	ProductID   string
	Quantity    int
	Email       string
	FirstName   string
	LastName    string
	Decision    Decision
}
