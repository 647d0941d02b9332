package inventory

import (
	"context"
	"database/sql"

	"markethub-be/internal/db"
	"markethub-be/internal/logger"

	"go.uber.org/zap"
)

// Ledger is the single source of truth for stock counts. Every
// mutation runs in one transaction: lock row, validate, write new
// state, append a log entry. The *Tx variants let the order lifecycle
// compose ledger mutations into its own transaction.
type Ledger interface {
	AddStock(ctx context.Context, item ItemRef, qty int64, reason string, actorID *int64) error
	Restock(ctx context.Context, item ItemRef, qty int64, actorID *int64) error
	DeductStock(ctx context.Context, item ItemRef, qty int64, reason string, actorID *int64, ref *Reference) error
	RestoreStock(ctx context.Context, item ItemRef, qty int64, reason string, actorID *int64, ref *Reference) error
	Adjust(ctx context.Context, item ItemRef, newQty int64, reason string, actorID *int64) error
	Reserve(ctx context.Context, item ItemRef, qty int64, ref *Reference) (bool, error)
	Release(ctx context.Context, item ItemRef, qty int64, ref *Reference) error

	GetRecord(ctx context.Context, item ItemRef) (*Record, error)
	Logs(ctx context.Context, item ItemRef, limit int) ([]LogEntry, error)

	ReserveTx(ctx context.Context, tx *sql.Tx, item ItemRef, qty int64, ref *Reference) (bool, error)
	DeductStockTx(ctx context.Context, tx *sql.Tx, item ItemRef, qty int64, reason string, actorID *int64, ref *Reference) error
	RestoreStockTx(ctx context.Context, tx *sql.Tx, item ItemRef, qty int64, reason string, actorID *int64, ref *Reference) error
}

type ledger struct {
	db *sql.DB
}

func NewLedger(database *sql.DB) Ledger {
	return &ledger{db: database}
}

func notesPtr(reason string) *string {
	if reason == "" {
		return nil
	}
	return &reason
}

func refColumns(ref *Reference) (*string, *int64) {
	if ref == nil {
		return nil, nil
	}
	return &ref.Type, &ref.ID
}

func (l *ledger) AddStock(ctx context.Context, item ItemRef, qty int64, reason string, actorID *int64) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		return l.addTx(ctx, tx, item, qty, LogAddition, reason, actorID)
	})
}

// Restock is the explicit vendor restock path; same mutation as
// AddStock but logged as a restock.
func (l *ledger) Restock(ctx context.Context, item ItemRef, qty int64, actorID *int64) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		return l.addTx(ctx, tx, item, qty, LogRestock, "", actorID)
	})
}

func (l *ledger) addTx(ctx context.Context, tx *sql.Tx, item ItemRef, qty int64, typ LogType, reason string, actorID *int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	rec, err := lockRecord(ctx, tx, item)
	if err != nil {
		return err
	}

	var before, after int64
	if rec == nil {
		rec, err = insertRecord(ctx, tx, item, qty, true)
		if err != nil {
			return err
		}
		before, after = 0, qty
	} else {
		before = rec.Quantity
		after = rec.Quantity + qty
		if err := updateQuantities(ctx, tx, rec.ID, after, rec.ReservedQuantity, true); err != nil {
			return err
		}
	}

	logger.FromCtx(ctx).Info("stock added",
		zap.String("item", item.String()),
		zap.Int64("quantity", qty),
		zap.Int64("quantity_after", after),
	)

	return insertLog(ctx, tx, LogEntry{
		InventoryID:    rec.ID,
		Type:           typ,
		QuantityChange: qty,
		QuantityBefore: before,
		QuantityAfter:  after,
		ActorID:        actorID,
		Notes:          notesPtr(reason),
	})
}

func (l *ledger) DeductStock(ctx context.Context, item ItemRef, qty int64, reason string, actorID *int64, ref *Reference) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		return l.DeductStockTx(ctx, tx, item, qty, reason, actorID, ref)
	})
}

// DeductStockTx consumes stock that is backed by a reservation: it
// decrements total quantity and reserved quantity together, clearing
// the hold in the same step. Callers reserve first (ConfirmOrder does
// Reserve then Deduct inside one transaction).
func (l *ledger) DeductStockTx(ctx context.Context, tx *sql.Tx, item ItemRef, qty int64, reason string, actorID *int64, ref *Reference) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	rec, err := lockRecord(ctx, tx, item)
	if err != nil {
		return err
	}
	if rec == nil || rec.Quantity < qty || rec.ReservedQuantity < qty {
		return ErrInsufficientStock
	}

	newQty := rec.Quantity - qty
	newReserved := rec.ReservedQuantity - qty
	if newQty < 0 || newReserved < 0 || newQty < newReserved {
		return ErrLedgerInvariant
	}

	if err := updateQuantities(ctx, tx, rec.ID, newQty, newReserved, false); err != nil {
		return err
	}

	refType, refID := refColumns(ref)
	return insertLog(ctx, tx, LogEntry{
		InventoryID:    rec.ID,
		Type:           LogDeduction,
		QuantityChange: -qty,
		QuantityBefore: rec.Quantity,
		QuantityAfter:  newQty,
		ReferenceType:  refType,
		ReferenceID:    refID,
		ActorID:        actorID,
		Notes:          notesPtr(reason),
	})
}

func (l *ledger) RestoreStock(ctx context.Context, item ItemRef, qty int64, reason string, actorID *int64, ref *Reference) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		return l.RestoreStockTx(ctx, tx, item, qty, reason, actorID, ref)
	})
}

// RestoreStockTx gives back stock consumed by a deduction. A missing
// record is a no-op: cancelling an order whose item was never stocked
// must not fail and logs nothing.
func (l *ledger) RestoreStockTx(ctx context.Context, tx *sql.Tx, item ItemRef, qty int64, reason string, actorID *int64, ref *Reference) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	rec, err := lockRecord(ctx, tx, item)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	newQty := rec.Quantity + qty
	if err := updateQuantities(ctx, tx, rec.ID, newQty, rec.ReservedQuantity, false); err != nil {
		return err
	}

	refType, refID := refColumns(ref)
	return insertLog(ctx, tx, LogEntry{
		InventoryID:    rec.ID,
		Type:           LogRestoration,
		QuantityChange: qty,
		QuantityBefore: rec.Quantity,
		QuantityAfter:  newQty,
		ReferenceType:  refType,
		ReferenceID:    refID,
		ActorID:        actorID,
		Notes:          notesPtr(reason),
	})
}

// Adjust overwrites the total quantity, e.g. after a physical count.
func (l *ledger) Adjust(ctx context.Context, item ItemRef, newQty int64, reason string, actorID *int64) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if newQty < 0 {
			return ErrInvalidQuantity
		}

		rec, err := lockRecord(ctx, tx, item)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrRecordNotFound
		}
		if newQty < rec.ReservedQuantity {
			return ErrLedgerInvariant
		}

		if err := updateQuantities(ctx, tx, rec.ID, newQty, rec.ReservedQuantity, false); err != nil {
			return err
		}

		return insertLog(ctx, tx, LogEntry{
			InventoryID:    rec.ID,
			Type:           LogAdjustment,
			QuantityChange: newQty - rec.Quantity,
			QuantityBefore: rec.Quantity,
			QuantityAfter:  newQty,
			ActorID:        actorID,
			Notes:          notesPtr(reason),
		})
	})
}

func (l *ledger) Reserve(ctx context.Context, item ItemRef, qty int64, ref *Reference) (bool, error) {
	var ok bool
	err := db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		var err error
		ok, err = l.ReserveTx(ctx, tx, item, qty, ref)
		return err
	})
	return ok, err
}

// ReserveTx places a hold that reduces availability without reducing
// total quantity. Returns false, without error, when available stock
// is short.
func (l *ledger) ReserveTx(ctx context.Context, tx *sql.Tx, item ItemRef, qty int64, ref *Reference) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}

	rec, err := lockRecord(ctx, tx, item)
	if err != nil {
		return false, err
	}
	if rec == nil || rec.Available() < qty {
		return false, nil
	}

	if err := updateQuantities(ctx, tx, rec.ID, rec.Quantity, rec.ReservedQuantity+qty, false); err != nil {
		return false, err
	}

	refType, refID := refColumns(ref)
	if err := insertLog(ctx, tx, LogEntry{
		InventoryID:    rec.ID,
		Type:           LogReservation,
		QuantityChange: -qty,
		QuantityBefore: rec.Quantity,
		QuantityAfter:  rec.Quantity,
		ReferenceType:  refType,
		ReferenceID:    refID,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (l *ledger) Release(ctx context.Context, item ItemRef, qty int64, ref *Reference) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if qty <= 0 {
			return ErrInvalidQuantity
		}

		rec, err := lockRecord(ctx, tx, item)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		if rec.ReservedQuantity < qty {
			return ErrLedgerInvariant
		}

		if err := updateQuantities(ctx, tx, rec.ID, rec.Quantity, rec.ReservedQuantity-qty, false); err != nil {
			return err
		}

		refType, refID := refColumns(ref)
		return insertLog(ctx, tx, LogEntry{
			InventoryID:    rec.ID,
			Type:           LogRelease,
			QuantityChange: qty,
			QuantityBefore: rec.Quantity,
			QuantityAfter:  rec.Quantity,
			ReferenceType:  refType,
			ReferenceID:    refID,
		})
	})
}

func (l *ledger) GetRecord(ctx context.Context, item ItemRef) (*Record, error) {
	rec, err := getRecord(ctx, l.db, item)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func (l *ledger) Logs(ctx context.Context, item ItemRef, limit int) ([]LogEntry, error) {
	return listLogs(ctx, l.db, item, limit)
}
