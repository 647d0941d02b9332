package httpx

import (
	"net/http"
	"time"

	"markethub-be/internal/logger"
	mw "markethub-be/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth      *AuthHandler
	Catalog   *CatalogHandler
	Inventory *InventoryHandler
	Orders    *OrdersHandler
	Invoices  *InvoicesHandler
	Alerts    *AlertsHandler
}

func NewRouter(h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Timeout(15 * time.Second))
	r.Use(logger.RequestIDMiddleware)
	r.Use(mw.Auth)
	r.Use(mw.RateLimit)
	r.Use(mw.Logging)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h.Auth.Register(r)
	h.Catalog.Register(r)
	h.Inventory.Register(r)
	h.Orders.Register(r)
	h.Invoices.Register(r)
	h.Alerts.Register(r)

	return r
}
