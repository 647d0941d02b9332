package order

import (
	"encoding/json"
	"time"

	"markethub-be/internal/inventory"
)

type Order struct {
	ID          int64
	OrderNumber string
	CustomerID  int64
	Status      Status

	SubtotalCents    int64
	TaxCents         int64
	ShippingFeeCents int64
	DiscountCents    int64
	TotalCents       int64
	Currency         string

	// Shipping and billing details are denormalized at creation time so
	// later customer edits do not rewrite history.
	ShippingAddress *string
	BillingAddress  *string
	CustomerEmail   *string
	CustomerPhone   *string
	Notes           *string

	ConfirmedAt        *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time

	Items []OrderItem
}

// CanBeCancelled reports whether the order is still early enough in
// its lifecycle to cancel.
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}

// OrderItem is an immutable snapshot of the purchased item. Price
// changes after ordering do not affect existing orders.
type OrderItem struct {
	ID                int64
	OrderID           int64
	ProductID         int64
	VariantID         *int64
	ProductName       string
	ProductSKU        string
	VariantAttributes json.RawMessage
	Quantity          int64
	UnitPriceCents    int64
	SubtotalCents     int64
	TaxCents          int64
	TotalCents        int64
}

// ItemRef identifies the inventoriable item this line consumes stock
// from: the variant when present, otherwise the product.
func (it *OrderItem) ItemRef() inventory.ItemRef {
	if it.VariantID != nil {
		return inventory.VariantRef(*it.VariantID)
	}
	return inventory.ProductRef(it.ProductID)
}

type StatusHistoryEntry struct {
	ID         int64
	OrderID    int64
	FromStatus Status
	ToStatus   Status
	ChangedBy  *int64
	Notes      *string
	CreatedAt  time.Time
}

type LineInput struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
}

type CreateOrderInput struct {
	Items            []LineInput
	TaxCents         int64
	ShippingFeeCents int64
	DiscountCents    int64
	Currency         string
	ShippingAddress  *string
	BillingAddress   *string
	CustomerEmail    *string
	CustomerPhone    *string
	Notes            *string
}

type ListFilter struct {
	CustomerID *int64
	Status     *Status
	Limit      int32
	Offset     int32
}
