package lowstock

import (
	"context"
	"database/sql"

	"markethub-be/internal/inventory"
)

type Repository interface {
	// ListCandidates joins every inventory record with the threshold of
	// its owning product; variants inherit the product threshold. The
	// comparison quantity is available stock, net of reservations.
	ListCandidates(ctx context.Context) ([]Candidate, error)

	FindOpenAlert(ctx context.Context, item inventory.ItemRef) (*Alert, error)
	CreateAlert(ctx context.Context, item inventory.ItemRef, quantity, threshold int64) (*Alert, error)
	UpdateQuantity(ctx context.Context, id, quantity int64) error
	MarkNotified(ctx context.Context, id int64) error
	MarkResolved(ctx context.Context, id int64) error
	ListAlerts(ctx context.Context, status *AlertStatus, limit, offset int32) ([]*Alert, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) Repository {
	return &repository{db: database}
}

func (r *repository) ListCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.item_type, i.item_id, i.quantity - i.reserved_quantity AS available, p.low_stock_threshold
		FROM inventories i
		JOIN products p ON (i.item_type = 'product' AND i.item_id = p.id)
		WHERE p.deleted_at IS NULL AND p.is_active = TRUE
		UNION ALL
		SELECT i.item_type, i.item_id, i.quantity - i.reserved_quantity AS available, p.low_stock_threshold
		FROM inventories i
		JOIN product_variants v ON (i.item_type = 'variant' AND i.item_id = v.id)
		JOIN products p ON v.product_id = p.id
		WHERE p.deleted_at IS NULL AND p.is_active = TRUE AND v.is_active = TRUE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Item.Kind, &c.Item.ID, &c.Available, &c.Threshold); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

const alertColumns = `id, item_type, item_id, current_quantity, threshold, status,
	notified_at, resolved_at, created_at, updated_at`

func scanAlert(row interface{ Scan(...any) error }) (*Alert, error) {
	var a Alert
	err := row.Scan(
		&a.ID, &a.Item.Kind, &a.Item.ID, &a.CurrentQuantity, &a.Threshold, &a.Status,
		&a.NotifiedAt, &a.ResolvedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) FindOpenAlert(ctx context.Context, item inventory.ItemRef) (*Alert, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM low_stock_alerts
		WHERE item_type = $1 AND item_id = $2 AND status IN ($3, $4)
		ORDER BY id DESC
		LIMIT 1
	`, item.Kind, item.ID, StatusPending, StatusNotified)

	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *repository) CreateAlert(ctx context.Context, item inventory.ItemRef, quantity, threshold int64) (*Alert, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO low_stock_alerts (item_type, item_id, current_quantity, threshold, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+alertColumns+`
	`, item.Kind, item.ID, quantity, threshold, StatusPending)
	return scanAlert(row)
}

func (r *repository) UpdateQuantity(ctx context.Context, id, quantity int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE low_stock_alerts SET current_quantity = $1, updated_at = NOW() WHERE id = $2
	`, quantity, id)
	return err
}

func (r *repository) MarkNotified(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, StatusNotified, "notified_at")
}

func (r *repository) MarkResolved(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, StatusResolved, "resolved_at")
}

func (r *repository) setStatus(ctx context.Context, id int64, status AlertStatus, stampColumn string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE low_stock_alerts SET status = $1, `+stampColumn+` = NOW(), updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *repository) ListAlerts(ctx context.Context, status *AlertStatus, limit, offset int32) ([]*Alert, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + alertColumns + ` FROM low_stock_alerts`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`
	switch len(args) {
	case 0:
		query += ` LIMIT $1 OFFSET $2`
	default:
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
