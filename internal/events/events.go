package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderConfirmed   = "OrderConfirmed"
	EventOrderCancelled   = "OrderCancelled"
	EventLowStockDetected = "LowStockDetected"
)

// Envelope wraps every outbound event with routing metadata. The
// payload stays opaque JSON so consumers can decode per event type.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Payload      json.RawMessage `json:"payload"`
}

func NewEnvelope(producer, eventType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     producer,
		Payload:      raw,
	}, nil
}

// UnwrapPayload decodes the payload of an envelope into a concrete type.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	err := json.Unmarshal(payload, &t)
	return t, err
}

type OrderItemPayload struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
}

type OrderConfirmedPayload struct {
	OrderID       int64              `json:"order_id"`
	OrderNumber   string             `json:"order_number"`
	CustomerID    int64              `json:"customer_id"`
	CustomerEmail string             `json:"customer_email,omitempty"`
	TotalCents    int64              `json:"total_cents"`
	Currency      string             `json:"currency"`
	Items         []OrderItemPayload `json:"items"`
}

type OrderCancelledPayload struct {
	OrderID       int64  `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	CustomerID    int64  `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type LowStockDetectedPayload struct {
	ItemType        string `json:"item_type"`
	ItemID          int64  `json:"item_id"`
	CurrentQuantity int64  `json:"current_quantity"`
	Threshold       int64  `json:"threshold"`
}
