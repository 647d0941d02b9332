package inventory

import (
	"fmt"
	"time"
)

// ItemKind tags the owner of an inventory record: a product or one of
// its variants. Each owner has at most one record.
type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindVariant ItemKind = "variant"
)

// ItemRef identifies an inventoriable item.
type ItemRef struct {
	Kind ItemKind
	ID   int64
}

func ProductRef(id int64) ItemRef { return ItemRef{Kind: ItemKindProduct, ID: id} }
func VariantRef(id int64) ItemRef { return ItemRef{Kind: ItemKindVariant, ID: id} }

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

type Record struct {
	ID               int64
	Item             ItemRef
	Quantity         int64
	ReservedQuantity int64
	LastRestockedAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Available is the quantity not held against open orders.
func (r *Record) Available() int64 {
	return r.Quantity - r.ReservedQuantity
}

type LogType string

const (
	LogRestock     LogType = "restock"
	LogDeduction   LogType = "deduction"
	LogAdjustment  LogType = "adjustment"
	LogReservation LogType = "reservation"
	LogRelease     LogType = "release"
	LogAddition    LogType = "addition"
	LogRestoration LogType = "restoration"
)

// Reference links a log entry back to the business record that caused
// the mutation, usually an order.
type Reference struct {
	Type string
	ID   int64
}

// LogEntry is append-only; entries are never updated or deleted.
type LogEntry struct {
	ID             int64
	InventoryID    int64
	Type           LogType
	QuantityChange int64
	QuantityBefore int64
	QuantityAfter  int64
	ReferenceType  *string
	ReferenceID    *int64
	ActorID        *int64
	Notes          *string
	CreatedAt      time.Time
}
