package catalog

import "errors"

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrProductNotFound = errors.New("product not found")
	ErrSKUExists       = errors.New("sku already in use")
)
