package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"markethub-be/internal/inventory"
	"markethub-be/internal/middleware"
	"markethub-be/internal/user"
	"markethub-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type InventoryHandler struct {
	Ledger inventory.Ledger
}

type stockReq struct {
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(string(user.RoleAdmin), string(user.RoleVendor)))
		r.Post("/inventory/{kind}/{id}/add", h.addStock)
		r.Post("/inventory/{kind}/{id}/restock", h.restock)
		r.Post("/inventory/{kind}/{id}/adjust", h.adjust)
		r.Get("/inventory/{kind}/{id}", h.getRecord)
		r.Get("/inventory/{kind}/{id}/logs", h.listLogs)
	})
}

func itemRefFromPath(r *http.Request) (inventory.ItemRef, bool) {
	kind := inventory.ItemKind(chi.URLParam(r, "kind"))
	if kind != inventory.ItemKindProduct && kind != inventory.ItemKindVariant {
		return inventory.ItemRef{}, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return inventory.ItemRef{}, false
	}
	return inventory.ItemRef{Kind: kind, ID: id}, true
}

func (h *InventoryHandler) addStock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(item inventory.ItemRef, req stockReq, actorID *int64) error {
		return h.Ledger.AddStock(r.Context(), item, req.Quantity, req.Reason, actorID)
	})
}

func (h *InventoryHandler) restock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(item inventory.ItemRef, req stockReq, actorID *int64) error {
		return h.Ledger.Restock(r.Context(), item, req.Quantity, actorID)
	})
}

func (h *InventoryHandler) adjust(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(item inventory.ItemRef, req stockReq, actorID *int64) error {
		return h.Ledger.Adjust(r.Context(), item, req.Quantity, req.Reason, actorID)
	})
}

func (h *InventoryHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(inventory.ItemRef, stockReq, *int64) error) {
	item, ok := itemRefFromPath(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item"})
		return
	}

	var req stockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := fn(item, req, utils.ActorIDPtr(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.Ledger.GetRecord(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResp(rec))
}

type recordResp struct {
	ItemType         string `json:"item_type"`
	ItemID           int64  `json:"item_id"`
	Quantity         int64  `json:"quantity"`
	ReservedQuantity int64  `json:"reserved_quantity"`
	Available        int64  `json:"available"`
}

func toRecordResp(rec *inventory.Record) recordResp {
	return recordResp{
		ItemType:         string(rec.Item.Kind),
		ItemID:           rec.Item.ID,
		Quantity:         rec.Quantity,
		ReservedQuantity: rec.ReservedQuantity,
		Available:        rec.Available(),
	}
}

func (h *InventoryHandler) getRecord(w http.ResponseWriter, r *http.Request) {
	item, ok := itemRefFromPath(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item"})
		return
	}

	rec, err := h.Ledger.GetRecord(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResp(rec))
}

func (h *InventoryHandler) listLogs(w http.ResponseWriter, r *http.Request) {
	item, ok := itemRefFromPath(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item"})
		return
	}

	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 200 {
		limit = n
	}

	logs, err := h.Ledger.Logs(r.Context(), item, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
