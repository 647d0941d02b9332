package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"markethub-be/internal/db"
	"markethub-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// RunTx wraps a multi-write lifecycle operation in one transaction.
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error

	CreateOrderTx(ctx context.Context, tx *sql.Tx, o *Order, actorID *int64) error
	LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*Order, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, from, to Status, actorID *int64, notes *string) error
	SetCancellationReasonTx(ctx context.Context, tx *sql.Tx, orderID int64, reason *string) error

	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error)
	ListStatusHistory(ctx context.Context, orderID int64) ([]StatusHistoryEntry, error)
	SoftDelete(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) Repository {
	return &repository{db: database}
}

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// IsOrderNumberConflict reports a unique violation on the order number
// so the creator can regenerate and retry.
func IsOrderNumberConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation && strings.Contains(pqErr.Constraint, "order_number")
	}
	return false
}

// IsSerializationFailure reports lock contention detected at commit
// time; such transactions are retried a bounded number of times.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
	}
	return false
}

func (r *repository) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return db.WithTx(ctx, r.db, fn)
}

func (r *repository) CreateOrderTx(ctx context.Context, tx *sql.Tx, o *Order, actorID *int64) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO orders
			(order_number, customer_id, status, subtotal, tax, shipping_fee, discount, total,
			 currency, shipping_address, billing_address, customer_email, customer_phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`,
		o.OrderNumber, o.CustomerID, o.Status,
		o.SubtotalCents, o.TaxCents, o.ShippingFeeCents, o.DiscountCents, o.TotalCents,
		o.Currency, o.ShippingAddress, o.BillingAddress, o.CustomerEmail, o.CustomerPhone, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items
				(order_id, product_id, product_variant_id, product_name, product_sku,
				 variant_attributes, quantity, unit_price, subtotal, tax, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`,
			it.OrderID, it.ProductID, it.VariantID, it.ProductName, it.ProductSKU,
			it.VariantAttributes, it.Quantity, it.UnitPriceCents, it.SubtotalCents,
			it.TaxCents, it.TotalCents,
		).Scan(&it.ID)
		if err != nil {
			return err
		}
	}

	// Implicit pending->pending entry records creation in the audit trail.
	return r.insertHistoryTx(ctx, tx, o.ID, o.Status, o.Status, actorID, nil)
}

const orderColumns = `id, order_number, customer_id, status,
	subtotal, tax, shipping_fee, discount, total, currency,
	shipping_address, billing_address, customer_email, customer_phone, notes,
	confirmed_at, shipped_at, delivered_at, cancelled_at, cancellation_reason,
	created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status,
		&o.SubtotalCents, &o.TaxCents, &o.ShippingFeeCents, &o.DiscountCents,
		&o.TotalCents, &o.Currency,
		&o.ShippingAddress, &o.BillingAddress, &o.CustomerEmail, &o.CustomerPhone, &o.Notes,
		&o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt, &o.CancellationReason,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// LockOrderTx reads the order header FOR UPDATE so a lifecycle
// transition owns the row for the duration of its transaction, then
// loads the item snapshots.
func (r *repository) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*Order, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	o.Items, err = loadItems(ctx, tx, o.ID)
	return o, err
}

func (r *repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	o.Items, err = loadItems(ctx, r.db, o.ID)
	return o, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadItems(ctx context.Context, q querier, orderID int64) ([]OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_variant_id, product_name, product_sku,
		       variant_attributes, quantity, unit_price, subtotal, tax, total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.ProductName,
			&it.ProductSKU, &it.VariantAttributes, &it.Quantity, &it.UnitPriceCents,
			&it.SubtotalCents, &it.TaxCents, &it.TotalCents,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateStatusTx writes the new status, stamps the matching lifecycle
// timestamp and appends the audit entry. Transition legality is the
// caller's responsibility; the audit trail is always written.
func (r *repository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, from, to Status, actorID *int64, notes *string) error {
	set := `status = $1, updated_at = NOW()`
	if col := timestampColumn(to); col != "" {
		set += `, ` + col + ` = NOW()`
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET `+set+` WHERE id = $2 AND deleted_at IS NULL`,
		to, orderID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	return r.insertHistoryTx(ctx, tx, orderID, from, to, actorID, notes)
}

func (r *repository) insertHistoryTx(ctx context.Context, tx *sql.Tx, orderID int64, from, to Status, actorID *int64, notes *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_histories (order_id, from_status, to_status, changed_by, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, from, to, actorID, notes)
	return err
}

func (r *repository) SetCancellationReasonTx(ctx context.Context, tx *sql.Tx, orderID int64, reason *string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders SET cancellation_reason = $1, updated_at = NOW() WHERE id = $2
	`, reason, orderID)
	return err
}

func (r *repository) ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, placeholder("customer_id", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, placeholder("status", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC` +
		` LIMIT ` + dollar(len(args)+1) + ` OFFSET ` + dollar(len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func placeholder(col string, n int) string { return col + " = " + dollar(n) }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func (r *repository) ListStatusHistory(ctx context.Context, orderID int64) ([]StatusHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, notes, created_at
		FROM order_status_histories
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []StatusHistoryEntry
	for rows.Next() {
		var e StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.ChangedBy, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
