package httpx

import (
	"net/http"

	"markethub-be/internal/lowstock"
	"markethub-be/internal/middleware"
	"markethub-be/internal/user"

	"github.com/go-chi/chi/v5"
)

type AlertsHandler struct {
	Checker lowstock.Checker
}

func (h *AlertsHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(string(user.RoleAdmin), string(user.RoleVendor)))
		r.Get("/alerts", h.list)
		r.Post("/alerts/{id}/notified", h.markNotified)
	})
}

func (h *AlertsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pagination(q.Get("limit"), q.Get("offset"))

	var status *lowstock.AlertStatus
	if raw := q.Get("status"); raw != "" {
		s := lowstock.AlertStatus(raw)
		status = &s
	}

	alerts, err := h.Checker.ListAlerts(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *AlertsHandler) markNotified(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.Checker.MarkNotified(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
