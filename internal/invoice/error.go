package invoice

import "errors"

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrAlreadyIssued   = errors.New("order already has an invoice")
)
