package invoice

import "time"

type Status string

const (
	StatusIssued Status = "issued"
	StatusPaid   Status = "paid"
	StatusVoided Status = "voided"
)

// Invoice is issued once per order at confirmation time, inside the
// same transaction that moves the order to processing.
type Invoice struct {
	ID            int64
	OrderID       int64
	InvoiceNumber string
	OrderNumber   string
	AmountCents   int64
	Currency      string
	Status        Status
	IssuedAt      time.Time
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
