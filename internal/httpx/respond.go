package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"markethub-be/internal/catalog"
	"markethub-be/internal/inventory"
	"markethub-be/internal/invoice"
	"markethub-be/internal/lowstock"
	"markethub-be/internal/order"
	"markethub-be/internal/user"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps domain sentinels to HTTP status codes; anything
// unmapped is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, inventory.ErrRecordNotFound),
		errors.Is(err, invoice.ErrInvoiceNotFound),
		errors.Is(err, lowstock.ErrAlertNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidAmount),
		errors.Is(err, order.ErrNegativeTotal),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, user.ErrInvalidRole):
		return http.StatusBadRequest

	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, user.ErrInactive):
		return http.StatusForbidden

	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrInvalidState),
		errors.Is(err, order.ErrConflict),
		errors.Is(err, catalog.ErrSKUExists),
		errors.Is(err, user.ErrEmailExists),
		errors.Is(err, invoice.ErrAlreadyIssued):
		return http.StatusConflict

	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrLedgerInvariant):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
