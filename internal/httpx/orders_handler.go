package httpx

import (
	"encoding/json"
	"net/http"

	"markethub-be/internal/middleware"
	"markethub-be/internal/order"
	"markethub-be/internal/user"
	"markethub-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	Orders order.Service
}

type createOrderReq struct {
	Items            []orderLineReq `json:"items"`
	TaxCents         int64          `json:"tax_cents"`
	ShippingFeeCents int64          `json:"shipping_fee_cents"`
	DiscountCents    int64          `json:"discount_cents"`
	Currency         string         `json:"currency"`
	ShippingAddress  *string        `json:"shipping_address"`
	BillingAddress   *string        `json:"billing_address"`
	CustomerEmail    *string        `json:"customer_email"`
	CustomerPhone    *string        `json:"customer_phone"`
	Notes            *string        `json:"notes"`
}

type orderLineReq struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/orders", h.create)
		r.Get("/orders", h.list)
		r.Get("/orders/{id}", h.get)
		r.Get("/orders/{id}/history", h.history)
		r.Post("/orders/{id}/cancel", h.cancel)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(string(user.RoleAdmin), string(user.RoleVendor)))
		r.Post("/orders/{id}/confirm", h.confirm)
		r.Patch("/orders/{id}/status", h.updateStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(string(user.RoleAdmin)))
		r.Delete("/orders/{id}", h.delete)
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	lines := make([]order.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, order.LineInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}

	customerID, _ := utils.GetActorIDFromContext(r.Context())
	o, err := h.Orders.CreateOrder(r.Context(), order.CreateOrderInput{
		Items:            lines,
		TaxCents:         req.TaxCents,
		ShippingFeeCents: req.ShippingFeeCents,
		DiscountCents:    req.DiscountCents,
		Currency:         req.Currency,
		ShippingAddress:  req.ShippingAddress,
		BillingAddress:   req.BillingAddress,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		Notes:            req.Notes,
	}, customerID, utils.ActorIDPtr(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	o, err := h.Orders.ConfirmOrder(r.Context(), id, utils.ActorIDPtr(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	// Customers cancel their own orders; staff cancel any.
	if !h.canAccess(r, id) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	o, err := h.Orders.CancelOrder(r.Context(), id, req.Reason, utils.ActorIDPtr(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Status string  `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := h.Orders.UpdateOrderStatus(r.Context(), id, order.Status(req.Status), utils.ActorIDPtr(r.Context()), req.Notes); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.Orders.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if !h.canAccess(r, id) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	o, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pagination(q.Get("limit"), q.Get("offset"))

	filter := order.ListFilter{Limit: limit, Offset: offset}
	if raw := q.Get("status"); raw != "" {
		status := order.Status(raw)
		if !status.Valid() {
			writeError(w, order.ErrInvalidStatus)
			return
		}
		filter.Status = &status
	}

	// Customers see only their own orders.
	if !isStaff(r) {
		id, _ := utils.GetActorIDFromContext(r.Context())
		filter.CustomerID = &id
	}

	orders, err := h.Orders.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if !h.canAccess(r, id) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	entries, err := h.Orders.ListStatusHistory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func isStaff(r *http.Request) bool {
	role := utils.GetActorRoleFromContext(r.Context())
	return role == string(user.RoleAdmin) || role == string(user.RoleVendor)
}

func (h *OrdersHandler) canAccess(r *http.Request, orderID int64) bool {
	if isStaff(r) {
		return true
	}
	o, err := h.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		// Let the handler surface not-found instead of forbidden.
		return true
	}
	actorID, _ := utils.GetActorIDFromContext(r.Context())
	return o.CustomerID == actorID
}
