package domain

// Inbound events. Field names mirror the producers' JSON payloads.

type ProductCreated struct {
	ProductID string `json:"productId"`
}

type ProductDeleted struct {
	ProductID string `json:"productId"`
}

type OrderPlaced struct {
	OrderNumber string `json:"orderNumber"`
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// OrderCancelled carries the same payload as OrderPlaced; the upstream
// messageId travels as a transport header, not in the body.
type OrderCancelled struct {
	OrderNumber string `json:"orderNumber"`
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// Outbound events.

type InventoryReserved struct {
	OrderNumber string `json:"orderNumber"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type InventoryRejected struct {
	OrderNumber string `json:"orderNumber"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}
