package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"markethub-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, vendorID *int64, onlyActive bool, limit, offset int32) ([]*Product, error)
	SetProductActive(ctx context.Context, id int64, active bool) error

	CreateVariant(ctx context.Context, v *Variant) error
	GetVariant(ctx context.Context, id int64) (*Variant, error)
	ListVariants(ctx context.Context, productID int64) ([]*Variant, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) Repository {
	return &repository{db: database}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func (r *repository) CreateProduct(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products
			(vendor_id, category_id, name, slug, sku, description,
			 base_price, has_variants, is_active, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		p.VendorID, p.CategoryID, p.Name, p.Slug, p.SKU, p.Description,
		p.BasePriceCents, p.HasVariants, p.IsActive, p.LowStockThreshold,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSKUExists
		}
		logger.FromCtx(ctx).Error("db: failed to insert product",
			zap.String("sku", p.SKU),
			zap.Error(err),
		)
	}
	return err
}

const productColumns = `id, vendor_id, category_id, name, slug, sku, description,
	base_price, has_variants, is_active, low_stock_threshold, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.VendorID, &p.CategoryID, &p.Name, &p.Slug, &p.SKU, &p.Description,
		&p.BasePriceCents, &p.HasVariants, &p.IsActive, &p.LowStockThreshold,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *repository) ListProducts(ctx context.Context, vendorID *int64, onlyActive bool, limit, offset int32) ([]*Product, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	if vendorID != nil {
		args = append(args, *vendorID)
		conds = append(conds, "vendor_id = $1")
	}
	if onlyActive {
		conds = append(conds, "is_active = TRUE")
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC`
	switch len(args) {
	case 0:
		query += ` LIMIT $1 OFFSET $2`
	case 1:
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) SetProductActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET is_active = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) CreateVariant(ctx context.Context, v *Variant) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO product_variants (product_id, sku, name, attributes, price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`,
		v.ProductID, v.SKU, v.Name, v.Attributes, v.PriceCents, v.IsActive,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)

	if err != nil && isUniqueViolation(err) {
		return ErrSKUExists
	}
	return err
}

const variantColumns = `id, product_id, sku, name, attributes, price, is_active, created_at, updated_at`

func scanVariant(row interface{ Scan(...any) error }) (*Variant, error) {
	var v Variant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Attributes, &v.PriceCents,
		&v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repository) GetVariant(ctx context.Context, id int64) (*Variant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+variantColumns+`
		FROM product_variants
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	v, err := scanVariant(row)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	return v, err
}

func (r *repository) ListVariants(ctx context.Context, productID int64) ([]*Variant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+variantColumns+`
		FROM product_variants
		WHERE product_id = $1 AND deleted_at IS NULL
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []*Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}
