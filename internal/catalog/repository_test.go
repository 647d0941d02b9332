package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "vendor_id", "category_id", "name", "slug", "sku", "description",
		"base_price", "has_variants", "is_active", "low_stock_threshold",
		"created_at", "updated_at",
	}).AddRow(1, 3, nil, "Walnut Desk", "v3-walnut-desk", "DESK-W", nil,
		25000, false, true, 10, now, now)
}

func TestRepository_GetProduct(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	repo := NewRepository(database)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, vendor_id, .* FROM products WHERE id = \$1 AND deleted_at IS NULL`).
			WithArgs(int64(1)).
			WillReturnRows(productRows())

		p, err := repo.GetProduct(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "DESK-W", p.SKU)
		assert.Equal(t, int64(25000), p.BasePriceCents)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, vendor_id, .* FROM products`).
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetProduct(context.Background(), 404)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestRepository_CreateProduct_DuplicateSKU(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	repo := NewRepository(database)

	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "products_sku_key"})

	err = repo.CreateProduct(context.Background(), &Product{SKU: "DESK-W"})
	assert.ErrorIs(t, err, ErrSKUExists)
}

func TestRepository_ListProducts_Filters(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	repo := NewRepository(database)

	t.Run("All", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, vendor_id, .* FROM products WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
			WithArgs(int32(20), int32(0)).
			WillReturnRows(productRows())

		products, err := repo.ListProducts(context.Background(), nil, false, 20, 0)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})

	t.Run("VendorAndActive", func(t *testing.T) {
		vendorID := int64(3)
		mock.ExpectQuery(`SELECT id, vendor_id, .* FROM products WHERE deleted_at IS NULL AND vendor_id = \$1 AND is_active = TRUE ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
			WithArgs(vendorID, int32(10), int32(0)).
			WillReturnRows(productRows())

		products, err := repo.ListProducts(context.Background(), &vendorID, true, 10, 0)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})
}

func TestRepository_GetVariant_NotFound(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	repo := NewRepository(database)

	mock.ExpectQuery(`SELECT id, product_id, .* FROM product_variants WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetVariant(context.Background(), 9)
	assert.ErrorIs(t, err, ErrItemNotFound)
}
