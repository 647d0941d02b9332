package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"markethub-be/internal/catalog"
	"markethub-be/internal/config"
	"markethub-be/internal/db"
	"markethub-be/internal/events"
	"markethub-be/internal/httpx"
	"markethub-be/internal/inventory"
	"markethub-be/internal/invoice"
	"markethub-be/internal/kafka"
	"markethub-be/internal/logger"
	"markethub-be/internal/lowstock"
	"markethub-be/internal/order"
	"markethub-be/internal/user"

	"go.uber.org/zap"
)

const eventsTopic = "markethub.events"

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The producer outlives the signal context: it closes only after
	// the HTTP server has drained, so in-flight requests can still
	// publish their events.
	var publisher events.Publisher = events.Nop{}
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, eventsTopic, 1024)
		producer.Start(context.Background())
		publisher = kafka.NewPublisher(producer)
	}

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo)

	catalogRepo := catalog.NewRepository(database)
	catalogSvc := catalog.NewService(catalogRepo)

	ledger := inventory.NewLedger(database)
	invoiceRepo := invoice.NewRepository(database)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, catalogSvc, ledger, publisher, invoiceRepo)

	alertRepo := lowstock.NewRepository(database)
	checker := lowstock.NewChecker(alertRepo, publisher)

	router := httpx.NewRouter(httpx.Handlers{
		Auth:      &httpx.AuthHandler{Users: userSvc},
		Catalog:   &httpx.CatalogHandler{Catalog: catalogSvc},
		Inventory: &httpx.InventoryHandler{Ledger: ledger},
		Orders:    &httpx.OrdersHandler{Orders: orderSvc},
		Invoices:  &httpx.InvoicesHandler{Invoices: invoiceRepo, Orders: orderSvc},
		Alerts:    &httpx.AlertsHandler{Checker: checker},
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx := context.Background()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.L().Info("server listening", zap.String("port", cfg.AppPort))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L().Fatal("server failed", zap.Error(err))
	}

	if producer != nil {
		producer.Close()
		producer.WaitClosed()
	}
}
