package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"markethub-be/internal/catalog"
	"markethub-be/internal/middleware"
	"markethub-be/internal/user"
	"markethub-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	Catalog catalog.Service
}

type createProductReq struct {
	CategoryID        *int64          `json:"category_id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Description       *string         `json:"description"`
	BasePriceCents    int64           `json:"base_price_cents"`
	HasVariants       bool            `json:"has_variants"`
	LowStockThreshold int64           `json:"low_stock_threshold"`
	Variants          []createVariant `json:"variants"`
}

type createVariant struct {
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Attributes json.RawMessage `json:"attributes"`
	PriceCents int64           `json:"price_cents"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/variants", h.listVariants)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(string(user.RoleAdmin), string(user.RoleVendor)))
		r.Post("/products", h.createProduct)
		r.Post("/products/{id}/variants", h.createVariant)
		r.Patch("/products/{id}/active", h.setActive)
	})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.SKU == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and sku are required"})
		return
	}

	vendorID, _ := utils.GetActorIDFromContext(r.Context())
	p, err := h.Catalog.CreateProduct(r.Context(), catalog.CreateProductInput{
		VendorID:          vendorID,
		CategoryID:        req.CategoryID,
		Name:              req.Name,
		SKU:               req.SKU,
		Description:       req.Description,
		BasePriceCents:    req.BasePriceCents,
		HasVariants:       req.HasVariants || len(req.Variants) > 0,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	for _, v := range req.Variants {
		if _, err := h.Catalog.CreateVariant(r.Context(), catalog.CreateVariantInput{
			ProductID:  p.ID,
			SKU:        v.SKU,
			Name:       v.Name,
			Attributes: v.Attributes,
			PriceCents: v.PriceCents,
		}); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	p, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var vendorID *int64
	if raw := q.Get("vendor_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			vendorID = &id
		}
	}
	limit, offset := pagination(q.Get("limit"), q.Get("offset"))

	products, err := h.Catalog.ListProducts(r.Context(), vendorID, q.Get("include_inactive") == "", limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func pagination(rawLimit, rawOffset string) (int32, int32) {
	limit := int32(20)
	if n, err := strconv.ParseInt(rawLimit, 10, 32); err == nil && n > 0 && n <= 100 {
		limit = int32(n)
	}
	var offset int32
	if n, err := strconv.ParseInt(rawOffset, 10, 32); err == nil && n > 0 {
		offset = int32(n)
	}
	return limit, offset
}

func (h *CatalogHandler) createVariant(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req createVariant
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	v, err := h.Catalog.CreateVariant(r.Context(), catalog.CreateVariantInput{
		ProductID:  productID,
		SKU:        req.SKU,
		Name:       req.Name,
		Attributes: req.Attributes,
		PriceCents: req.PriceCents,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *CatalogHandler) listVariants(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	variants, err := h.Catalog.ListVariants(r.Context(), productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, variants)
}

func (h *CatalogHandler) setActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := h.Catalog.SetProductActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
