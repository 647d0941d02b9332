package catalog

import (
	"encoding/json"
	"time"

	"markethub-be/internal/inventory"
)

type Product struct {
	ID                int64
	VendorID          int64
	CategoryID        *int64
	Name              string
	Slug              string
	SKU               string
	Description       *string
	BasePriceCents    int64
	HasVariants       bool
	IsActive          bool
	LowStockThreshold int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Variant struct {
	ID         int64
	ProductID  int64
	SKU        string
	Name       string
	Attributes json.RawMessage
	PriceCents int64
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName combines product and variant names the way they appear on
// order line snapshots.
func (v *Variant) FullName(productName string) string {
	return productName + " - " + v.Name
}

// Snapshot is what order creation freezes per line: identity, naming
// and the price at resolution time.
type Snapshot struct {
	Item       inventory.ItemRef
	ProductID  int64
	VariantID  *int64
	Name       string
	SKU        string
	PriceCents int64
	Attributes json.RawMessage
}

type CreateProductInput struct {
	VendorID          int64
	CategoryID        *int64
	Name              string
	SKU               string
	Description       *string
	BasePriceCents    int64
	HasVariants       bool
	LowStockThreshold int64
}

type CreateVariantInput struct {
	ProductID  int64
	SKU        string
	Name       string
	Attributes json.RawMessage
	PriceCents int64
}
