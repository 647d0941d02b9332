package invoice

import (
	"context"
	"database/sql"
	"errors"

	"markethub-be/internal/logger"
	"markethub-be/internal/utils"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository persists invoices. IssueTx satisfies the issuer port the
// order lifecycle confirms through.
type Repository interface {
	IssueTx(ctx context.Context, tx *sql.Tx, orderID int64, orderNumber string, totalCents int64, currency string) error
	GetByOrderID(ctx context.Context, orderID int64) (*Invoice, error)
	MarkPaid(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) Repository {
	return &repository{db: database}
}

func (r *repository) IssueTx(ctx context.Context, tx *sql.Tx, orderID int64, orderNumber string, totalCents int64, currency string) error {
	number := utils.GenerateInvoiceNumber()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (order_id, invoice_number, order_number, amount, currency, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, orderID, number, orderNumber, totalCents, currency, StatusIssued)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrAlreadyIssued
	}
	if err != nil {
		return err
	}

	logger.FromCtx(ctx).Info("invoice issued",
		zap.Int64("order_id", orderID),
		zap.String("invoice_number", number),
		zap.Int64("amount_cents", totalCents),
	)
	return nil
}

func (r *repository) GetByOrderID(ctx context.Context, orderID int64) (*Invoice, error) {
	var inv Invoice
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, invoice_number, order_number, amount, currency, status,
		       issued_at, paid_at, created_at, updated_at
		FROM invoices
		WHERE order_id = $1
	`, orderID).Scan(
		&inv.ID, &inv.OrderID, &inv.InvoiceNumber, &inv.OrderNumber, &inv.AmountCents,
		&inv.Currency, &inv.Status, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) MarkPaid(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET status = $1, paid_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, StatusPaid, id, StatusIssued)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
