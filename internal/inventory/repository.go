package inventory

import (
	"context"
	"database/sql"
	"time"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const recordColumns = `id, item_type, item_id, quantity, reserved_quantity, last_restocked_at, created_at, updated_at`

func scanRecord(row *sql.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.Item.Kind,
		&rec.Item.ID,
		&rec.Quantity,
		&rec.ReservedQuantity,
		&rec.LastRestockedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// lockRecord reads the inventory row under FOR UPDATE so concurrent
// mutations of the same item are linearized by the database. Returns
// nil when no record exists.
func lockRecord(ctx context.Context, q querier, item ItemRef) (*Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM inventories
		WHERE item_type = $1 AND item_id = $2
		FOR UPDATE
	`, item.Kind, item.ID)
	return scanRecord(row)
}

func getRecord(ctx context.Context, q querier, item ItemRef) (*Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM inventories
		WHERE item_type = $1 AND item_id = $2
	`, item.Kind, item.ID)
	return scanRecord(row)
}

func insertRecord(ctx context.Context, q querier, item ItemRef, quantity int64, restocked bool) (*Record, error) {
	rec := Record{
		Item:     item,
		Quantity: quantity,
	}
	var restockedAt *time.Time
	if restocked {
		now := time.Now().UTC()
		restockedAt = &now
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO inventories (item_type, item_id, quantity, reserved_quantity, last_restocked_at)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING id, created_at, updated_at
	`, item.Kind, item.ID, quantity, restockedAt).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.LastRestockedAt = restockedAt
	return &rec, nil
}

func updateQuantities(ctx context.Context, q querier, id, quantity, reserved int64, restocked bool) error {
	if restocked {
		_, err := q.ExecContext(ctx, `
			UPDATE inventories
			SET quantity = $1, reserved_quantity = $2, last_restocked_at = NOW(), updated_at = NOW()
			WHERE id = $3
		`, quantity, reserved, id)
		return err
	}
	_, err := q.ExecContext(ctx, `
		UPDATE inventories
		SET quantity = $1, reserved_quantity = $2, updated_at = NOW()
		WHERE id = $3
	`, quantity, reserved, id)
	return err
}

func insertLog(ctx context.Context, q querier, entry LogEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO inventory_logs
			(inventory_id, type, quantity_change, quantity_before, quantity_after,
			 reference_type, reference_id, actor_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.InventoryID,
		entry.Type,
		entry.QuantityChange,
		entry.QuantityBefore,
		entry.QuantityAfter,
		entry.ReferenceType,
		entry.ReferenceID,
		entry.ActorID,
		entry.Notes,
	)
	return err
}

func listLogs(ctx context.Context, q querier, item ItemRef, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.QueryContext(ctx, `
		SELECT l.id, l.inventory_id, l.type, l.quantity_change, l.quantity_before, l.quantity_after,
		       l.reference_type, l.reference_id, l.actor_id, l.notes, l.created_at
		FROM inventory_logs l
		JOIN inventories i ON i.id = l.inventory_id
		WHERE i.item_type = $1 AND i.item_id = $2
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $3
	`, item.Kind, item.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(
			&e.ID,
			&e.InventoryID,
			&e.Type,
			&e.QuantityChange,
			&e.QuantityBefore,
			&e.QuantityAfter,
			&e.ReferenceType,
			&e.ReferenceID,
			&e.ActorID,
			&e.Notes,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
