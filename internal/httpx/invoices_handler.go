package httpx

import (
	"net/http"

	"markethub-be/internal/invoice"
	"markethub-be/internal/middleware"
	"markethub-be/internal/order"
	"markethub-be/internal/user"
	"markethub-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type InvoicesHandler struct {
	Invoices invoice.Repository
	Orders   order.Service
}

func (h *InvoicesHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/orders/{id}/invoice", h.getByOrder)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(string(user.RoleAdmin)))
		r.Post("/invoices/{id}/paid", h.markPaid)
	})
}

func (h *InvoicesHandler) getByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	// Customers read invoices for their own orders only.
	if !isStaff(r) {
		o, err := h.Orders.GetOrder(r.Context(), orderID)
		if err != nil {
			writeError(w, err)
			return
		}
		actorID, _ := utils.GetActorIDFromContext(r.Context())
		if o.CustomerID != actorID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
	}

	inv, err := h.Invoices.GetByOrderID(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvoicesHandler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.Invoices.MarkPaid(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
