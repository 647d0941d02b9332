package catalog

import (
	"context"

	"markethub-be/internal/inventory"
	"markethub-be/internal/logger"

	"go.uber.org/zap"
)

// Resolver is the read-only lookup the order lifecycle uses to turn a
// (product, variant?) pair into a priced line snapshot.
type Resolver interface {
	Resolve(ctx context.Context, productID int64, variantID *int64) (*Snapshot, error)
}

type Service interface {
	Resolver

	CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, vendorID *int64, onlyActive bool, limit, offset int32) ([]*Product, error)
	SetProductActive(ctx context.Context, id int64, active bool) error

	CreateVariant(ctx context.Context, input CreateVariantInput) (*Variant, error)
	ListVariants(ctx context.Context, productID int64) ([]*Variant, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Resolve freezes item identity and price for one order line. Variant
// lines price from the variant; plain product lines from the base
// price. Missing items surface as ErrItemNotFound.
func (s *service) Resolve(ctx context.Context, productID int64, variantID *int64) (*Snapshot, error) {
	if variantID == nil {
		p, err := s.repo.GetProduct(ctx, productID)
		if err == ErrProductNotFound {
			return nil, ErrItemNotFound
		}
		if err != nil {
			return nil, err
		}
		return &Snapshot{
			Item:       inventory.ProductRef(p.ID),
			ProductID:  p.ID,
			Name:       p.Name,
			SKU:        p.SKU,
			PriceCents: p.BasePriceCents,
		}, nil
	}

	v, err := s.repo.GetVariant(ctx, *variantID)
	if err != nil {
		return nil, err
	}
	if v.ProductID != productID {
		return nil, ErrItemNotFound
	}

	p, err := s.repo.GetProduct(ctx, v.ProductID)
	if err == ErrProductNotFound {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Item:       inventory.VariantRef(v.ID),
		ProductID:  p.ID,
		VariantID:  &v.ID,
		Name:       v.FullName(p.Name),
		SKU:        v.SKU,
		PriceCents: v.PriceCents,
		Attributes: v.Attributes,
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateProduct"),
		zap.Int64("vendor_id", input.VendorID),
	)

	threshold := input.LowStockThreshold
	if threshold <= 0 {
		threshold = 10
	}

	p := &Product{
		VendorID:          input.VendorID,
		CategoryID:        input.CategoryID,
		Name:              input.Name,
		Slug:              Slugify(input.Name, input.VendorID),
		SKU:               input.SKU,
		Description:       input.Description,
		BasePriceCents:    input.BasePriceCents,
		HasVariants:       input.HasVariants,
		IsActive:          true,
		LowStockThreshold: threshold,
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		log.Error("failed to create product", zap.Error(err))
		return nil, err
	}

	log.Info("product created", zap.Int64("product_id", p.ID), zap.String("sku", p.SKU))
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, vendorID *int64, onlyActive bool, limit, offset int32) ([]*Product, error) {
	return s.repo.ListProducts(ctx, vendorID, onlyActive, limit, offset)
}

func (s *service) SetProductActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetProductActive(ctx, id, active)
}

func (s *service) CreateVariant(ctx context.Context, input CreateVariantInput) (*Variant, error) {
	if _, err := s.repo.GetProduct(ctx, input.ProductID); err != nil {
		return nil, err
	}

	v := &Variant{
		ProductID:  input.ProductID,
		SKU:        input.SKU,
		Name:       input.Name,
		Attributes: input.Attributes,
		PriceCents: input.PriceCents,
		IsActive:   true,
	}
	if err := s.repo.CreateVariant(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) ListVariants(ctx context.Context, productID int64) ([]*Variant, error) {
	return s.repo.ListVariants(ctx, productID)
}
