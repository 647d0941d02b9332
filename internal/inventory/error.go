package inventory

import "errors"

var (
	// ErrInsufficientStock is a user-correctable condition: reduce the
	// requested quantity or wait for a restock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrLedgerInvariant means a mutation would drive reserved or
	// available quantity negative. That is a programming error, not a
	// user error, and aborts the transaction.
	ErrLedgerInvariant = errors.New("inventory ledger invariant violated")

	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrRecordNotFound  = errors.New("inventory record not found")
)
