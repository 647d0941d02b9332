package order

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must contain at least one item")
	ErrInvalidQuantity   = errors.New("item quantity must be greater than zero")
	ErrInvalidAmount     = errors.New("money fields must be non-negative")
	ErrNegativeTotal     = errors.New("order total must not be negative")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("order cannot be cancelled in its current status")

	// ErrConflict surfaces after bounded retries of a transaction that
	// kept losing lock contention; callers may retry the whole request.
	ErrConflict = errors.New("transaction conflict")
)
