package lowstock

import (
	"time"

	"markethub-be/internal/inventory"
)

type AlertStatus string

const (
	StatusPending  AlertStatus = "pending"
	StatusNotified AlertStatus = "notified"
	StatusResolved AlertStatus = "resolved"
)

// Alert records that an item's quantity dropped to or below its
// threshold. At most one open (pending or notified) alert exists per
// item; the sweep resolves it once stock recovers.
type Alert struct {
	ID              int64
	Item            inventory.ItemRef
	CurrentQuantity int64
	Threshold       int64
	Status          AlertStatus
	NotifiedAt      *time.Time
	ResolvedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Candidate is one row of the sweep join: an inventory record paired
// with the threshold configured on its product. Available is quantity
// minus reservations, the number a new order could actually consume.
type Candidate struct {
	Item      inventory.ItemRef
	Available int64
	Threshold int64
}

func (c Candidate) Low() bool {
	return c.Available <= c.Threshold
}
