package order

import (
	"context"
	"database/sql"
	"fmt"

	"markethub-be/internal/catalog"
	"markethub-be/internal/events"
	"markethub-be/internal/inventory"
	"markethub-be/internal/logger"
	"markethub-be/internal/utils"

	"go.uber.org/zap"
)

const (
	producerName       = "markethub-api"
	maxNumberAttempts  = 3
	maxConflictRetries = 3
)

// InvoiceIssuer is implemented by the invoice package; confirmation
// issues the invoice inside the same transaction as the status change.
type InvoiceIssuer interface {
	IssueTx(ctx context.Context, tx *sql.Tx, orderID int64, orderNumber string, totalCents int64, currency string) error
}

// Service sequences the multi-step lifecycle transactions spanning the
// order aggregate and the inventory ledger.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput, customerID int64, actorID *int64) (*Order, error)
	ConfirmOrder(ctx context.Context, orderID int64, actorID *int64) (*Order, error)
	CancelOrder(ctx context.Context, orderID int64, reason string, actorID *int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, to Status, actorID *int64, notes *string) error

	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error)
	ListStatusHistory(ctx context.Context, orderID int64) ([]StatusHistoryEntry, error)
	DeleteOrder(ctx context.Context, id int64) error
}

type service struct {
	repo      Repository
	catalog   catalog.Resolver
	ledger    inventory.Ledger
	publisher events.Publisher
	invoices  InvoiceIssuer
}

func NewService(repo Repository, resolver catalog.Resolver, ledger inventory.Ledger, publisher events.Publisher, invoices InvoiceIssuer) Service {
	return &service{
		repo:      repo,
		catalog:   resolver,
		ledger:    ledger,
		publisher: publisher,
		invoices:  invoices,
	}
}

// CreateOrder resolves every line, freezes prices, and persists the
// pending order in one transaction. Inventory is untouched until
// confirmation. Order-number collisions regenerate and retry.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput, customerID int64, actorID *int64) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int64("customer_id", customerID),
		zap.Int("item_count", len(input.Items)),
	)

	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if input.TaxCents < 0 || input.ShippingFeeCents < 0 || input.DiscountCents < 0 {
		return nil, ErrInvalidAmount
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	var (
		items    []OrderItem
		subtotal int64
	)
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		snap, err := s.catalog.Resolve(ctx, line.ProductID, line.VariantID)
		if err != nil {
			log.Warn("line resolution failed",
				zap.Int64("product_id", line.ProductID),
				zap.Error(err),
			)
			return nil, err
		}

		lineSubtotal := snap.PriceCents * line.Quantity
		subtotal += lineSubtotal

		items = append(items, OrderItem{
			ProductID:         snap.ProductID,
			VariantID:         snap.VariantID,
			ProductName:       snap.Name,
			ProductSKU:        snap.SKU,
			VariantAttributes: snap.Attributes,
			Quantity:          line.Quantity,
			UnitPriceCents:    snap.PriceCents,
			SubtotalCents:     lineSubtotal,
			TotalCents:        lineSubtotal,
		})
	}

	total := subtotal + input.TaxCents + input.ShippingFeeCents - input.DiscountCents
	if total < 0 {
		return nil, ErrNegativeTotal
	}

	o := &Order{
		CustomerID:       customerID,
		Status:           StatusPending,
		SubtotalCents:    subtotal,
		TaxCents:         input.TaxCents,
		ShippingFeeCents: input.ShippingFeeCents,
		DiscountCents:    input.DiscountCents,
		TotalCents:       total,
		Currency:         currency,
		ShippingAddress:  input.ShippingAddress,
		BillingAddress:   input.BillingAddress,
		CustomerEmail:    input.CustomerEmail,
		CustomerPhone:    input.CustomerPhone,
		Notes:            input.Notes,
		Items:            items,
	}

	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		o.OrderNumber = utils.GenerateOrderNumber()
		err = s.repo.RunTx(ctx, func(tx *sql.Tx) error {
			return s.repo.CreateOrderTx(ctx, tx, o, actorID)
		})
		if !IsOrderNumberConflict(err) {
			break
		}
		log.Warn("order number collision, regenerating", zap.String("order_number", o.OrderNumber))
	}
	if err != nil {
		return nil, err
	}

	log.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Int64("total_cents", o.TotalCents),
	)
	return o, nil
}

// ConfirmOrder deducts stock for every line and moves the order to
// processing, all in one transaction. A single short line rolls back
// everything and leaves the order pending.
func (s *service) ConfirmOrder(ctx context.Context, orderID int64, actorID *int64) (*Order, error) {
	var confirmed *Order

	err := s.withConflictRetry(ctx, func() error {
		return s.repo.RunTx(ctx, func(tx *sql.Tx) error {
			o, err := s.repo.LockOrderTx(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if o.Status != StatusPending {
				return fmt.Errorf("confirm from %s: %w", o.Status, ErrInvalidTransition)
			}

			ref := &inventory.Reference{Type: "order", ID: o.ID}
			reason := "Order #" + o.OrderNumber
			for i := range o.Items {
				it := &o.Items[i]
				ok, err := s.ledger.ReserveTx(ctx, tx, it.ItemRef(), it.Quantity, ref)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", it.ProductSKU, inventory.ErrInsufficientStock)
				}
				if err := s.ledger.DeductStockTx(ctx, tx, it.ItemRef(), it.Quantity, reason, actorID, ref); err != nil {
					return err
				}
			}

			notes := "Order confirmed and inventory deducted"
			if err := s.repo.UpdateStatusTx(ctx, tx, o.ID, o.Status, StatusProcessing, actorID, &notes); err != nil {
				return err
			}

			if s.invoices != nil {
				if err := s.invoices.IssueTx(ctx, tx, o.ID, o.OrderNumber, o.TotalCents, o.Currency); err != nil {
					return err
				}
			}

			o.Status = StatusProcessing
			confirmed = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventOrderConfirmed, events.OrderConfirmedPayload{
		OrderID:       confirmed.ID,
		OrderNumber:   confirmed.OrderNumber,
		CustomerID:    confirmed.CustomerID,
		CustomerEmail: strVal(confirmed.CustomerEmail),
		TotalCents:    confirmed.TotalCents,
		Currency:      confirmed.Currency,
		Items:         itemPayloads(confirmed.Items),
	})

	return confirmed, nil
}

// CancelOrder restores stock for confirmed orders and moves the order
// to cancelled. Pending orders never held stock, so cancellation
// performs no inventory mutation for them.
func (s *service) CancelOrder(ctx context.Context, orderID int64, reason string, actorID *int64) (*Order, error) {
	var cancelled *Order

	err := s.withConflictRetry(ctx, func() error {
		return s.repo.RunTx(ctx, func(tx *sql.Tx) error {
			o, err := s.repo.LockOrderTx(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if !o.CanBeCancelled() {
				return fmt.Errorf("cancel from %s: %w", o.Status, ErrInvalidState)
			}

			if o.Status == StatusProcessing {
				ref := &inventory.Reference{Type: "order", ID: o.ID}
				restoreReason := "Order #" + o.OrderNumber + " cancelled"
				for i := range o.Items {
					it := &o.Items[i]
					if err := s.ledger.RestoreStockTx(ctx, tx, it.ItemRef(), it.Quantity, restoreReason, actorID, ref); err != nil {
						return err
					}
				}
			}

			reasonPtr := notesPtr(reason)
			if err := s.repo.SetCancellationReasonTx(ctx, tx, o.ID, reasonPtr); err != nil {
				return err
			}
			if err := s.repo.UpdateStatusTx(ctx, tx, o.ID, o.Status, StatusCancelled, actorID, reasonPtr); err != nil {
				return err
			}

			o.Status = StatusCancelled
			o.CancellationReason = reasonPtr
			cancelled = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventOrderCancelled, events.OrderCancelledPayload{
		OrderID:       cancelled.ID,
		OrderNumber:   cancelled.OrderNumber,
		CustomerID:    cancelled.CustomerID,
		CustomerEmail: strVal(cancelled.CustomerEmail),
		Reason:        reason,
	})

	return cancelled, nil
}

// UpdateOrderStatus is the administrative progression path (shipped,
// delivered). Transitions are validated against the state machine;
// processing and cancelled are reachable only through ConfirmOrder and
// CancelOrder, which own the inventory side effects.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID int64, to Status, actorID *int64, notes *string) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if to == StatusProcessing || to == StatusCancelled {
		return fmt.Errorf("%s is set via confirm/cancel: %w", to, ErrInvalidTransition)
	}

	return s.repo.RunTx(ctx, func(tx *sql.Tx) error {
		o, err := s.repo.LockOrderTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, to) {
			return fmt.Errorf("%s -> %s: %w", o.Status, to, ErrInvalidTransition)
		}
		return s.repo.UpdateStatusTx(ctx, tx, o.ID, o.Status, to, actorID, notes)
	})
}

func (s *service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error) {
	return s.repo.ListOrders(ctx, filter)
}

func (s *service) ListStatusHistory(ctx context.Context, orderID int64) ([]StatusHistoryEntry, error) {
	return s.repo.ListStatusHistory(ctx, orderID)
}

// DeleteOrder soft-deletes a finished order. Orders still in flight
// hold inventory or expect lifecycle updates and cannot be removed.
func (s *service) DeleteOrder(ctx context.Context, id int64) error {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != StatusCancelled && o.Status != StatusDelivered {
		return fmt.Errorf("delete from %s: %w", o.Status, ErrInvalidState)
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("order deleted",
		zap.Int64("order_id", id),
		zap.String("order_number", o.OrderNumber),
	)
	return nil
}

func (s *service) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = fn(); !IsSerializationFailure(err) {
			return err
		}
		logger.FromCtx(ctx).Warn("transaction conflict, retrying", zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("%v: %w", err, ErrConflict)
}

func (s *service) publish(ctx context.Context, eventType string, payload any) {
	env, err := events.NewEnvelope(producerName, eventType, payload)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	s.publisher.Publish(ctx, env)
}

func itemPayloads(items []OrderItem) []events.OrderItemPayload {
	payloads := make([]events.OrderItemPayload, 0, len(items))
	for _, it := range items {
		payloads = append(payloads, events.OrderItemPayload{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
		})
	}
	return payloads
}

func notesPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
