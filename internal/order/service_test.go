package order

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"markethub-be/internal/catalog"
	"markethub-be/internal/events"
	"markethub-be/internal/inventory"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo keeps orders in memory and runs transaction callbacks with a
// nil *sql.Tx; the ledger and invoice fakes below never touch it. The
// begin hook lets the fixture snapshot collaborator state at tx start
// and restore it when the callback errors, mimicking a rollback.
type fakeRepo struct {
	orders      map[int64]*Order
	nextID      int64
	createErrs  []error
	createCalls int

	statusUpdates []Status
	histories     []StatusHistoryEntry
	reasons       map[int64]*string
	numbers       []string

	begin func() (rollback func())
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:  make(map[int64]*Order),
		nextID:  1,
		reasons: make(map[int64]*string),
	}
}

func (f *fakeRepo) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var rollback func()
	if f.begin != nil {
		rollback = f.begin()
	}
	if err := fn(nil); err != nil {
		if rollback != nil {
			rollback()
		}
		return err
	}
	return nil
}

func (f *fakeRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, o *Order, actorID *int64) error {
	f.createCalls++
	f.numbers = append(f.numbers, o.OrderNumber)
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	o.ID = f.nextID
	f.nextID++
	f.orders[o.ID] = o
	f.histories = append(f.histories, StatusHistoryEntry{OrderID: o.ID, FromStatus: o.Status, ToStatus: o.Status, ChangedBy: actorID})
	return nil
}

func (f *fakeRepo) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp, nil
}

func (f *fakeRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, from, to Status, actorID *int64, notes *string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = to
	f.statusUpdates = append(f.statusUpdates, to)
	f.histories = append(f.histories, StatusHistoryEntry{OrderID: orderID, FromStatus: from, ToStatus: to, ChangedBy: actorID, Notes: notes})
	return nil
}

func (f *fakeRepo) SetCancellationReasonTx(ctx context.Context, tx *sql.Tx, orderID int64, reason *string) error {
	f.reasons[orderID] = reason
	return nil
}

func (f *fakeRepo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeRepo) ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error) {
	var out []*Order
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeRepo) ListStatusHistory(ctx context.Context, orderID int64) ([]StatusHistoryEntry, error) {
	var out []StatusHistoryEntry
	for _, h := range f.histories {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeRepo) SoftDelete(ctx context.Context, id int64) error {
	delete(f.orders, id)
	return nil
}

// fakeLedger tracks quantity and reserved per item and records which
// mutations ran.
type stockState struct {
	quantity int64
	reserved int64
}

type fakeLedger struct {
	stock    map[inventory.ItemRef]*stockState
	deducts  int
	restores int
	reserves int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{stock: make(map[inventory.ItemRef]*stockState)}
}

func (f *fakeLedger) set(item inventory.ItemRef, qty, reserved int64) {
	f.stock[item] = &stockState{quantity: qty, reserved: reserved}
}

// checkpoint copies the stock table and returns a restore closure, so
// the fake repo can undo in-transaction mutations on error.
func (f *fakeLedger) checkpoint() func() {
	saved := make(map[inventory.ItemRef]stockState, len(f.stock))
	for item, s := range f.stock {
		saved[item] = *s
	}
	return func() {
		f.stock = make(map[inventory.ItemRef]*stockState, len(saved))
		for item, s := range saved {
			cp := s
			f.stock[item] = &cp
		}
	}
}

func (f *fakeLedger) ReserveTx(ctx context.Context, tx *sql.Tx, item inventory.ItemRef, qty int64, ref *inventory.Reference) (bool, error) {
	f.reserves++
	s, ok := f.stock[item]
	if !ok || s.quantity-s.reserved < qty {
		return false, nil
	}
	s.reserved += qty
	return true, nil
}

func (f *fakeLedger) DeductStockTx(ctx context.Context, tx *sql.Tx, item inventory.ItemRef, qty int64, reason string, actorID *int64, ref *inventory.Reference) error {
	f.deducts++
	s, ok := f.stock[item]
	if !ok || s.quantity < qty || s.reserved < qty {
		return inventory.ErrInsufficientStock
	}
	s.quantity -= qty
	s.reserved -= qty
	return nil
}

func (f *fakeLedger) RestoreStockTx(ctx context.Context, tx *sql.Tx, item inventory.ItemRef, qty int64, reason string, actorID *int64, ref *inventory.Reference) error {
	f.restores++
	if s, ok := f.stock[item]; ok {
		s.quantity += qty
	}
	return nil
}

func (f *fakeLedger) AddStock(ctx context.Context, item inventory.ItemRef, qty int64, reason string, actorID *int64) error {
	return errors.New("unexpected AddStock")
}

func (f *fakeLedger) Restock(ctx context.Context, item inventory.ItemRef, qty int64, actorID *int64) error {
	return errors.New("unexpected Restock")
}

func (f *fakeLedger) DeductStock(ctx context.Context, item inventory.ItemRef, qty int64, reason string, actorID *int64, ref *inventory.Reference) error {
	return errors.New("unexpected DeductStock")
}

func (f *fakeLedger) RestoreStock(ctx context.Context, item inventory.ItemRef, qty int64, reason string, actorID *int64, ref *inventory.Reference) error {
	return errors.New("unexpected RestoreStock")
}

func (f *fakeLedger) Adjust(ctx context.Context, item inventory.ItemRef, newQty int64, reason string, actorID *int64) error {
	return errors.New("unexpected Adjust")
}

func (f *fakeLedger) Reserve(ctx context.Context, item inventory.ItemRef, qty int64, ref *inventory.Reference) (bool, error) {
	return false, errors.New("unexpected Reserve")
}

func (f *fakeLedger) Release(ctx context.Context, item inventory.ItemRef, qty int64, ref *inventory.Reference) error {
	return errors.New("unexpected Release")
}

func (f *fakeLedger) GetRecord(ctx context.Context, item inventory.ItemRef) (*inventory.Record, error) {
	return nil, inventory.ErrRecordNotFound
}

func (f *fakeLedger) Logs(ctx context.Context, item inventory.ItemRef, limit int) ([]inventory.LogEntry, error) {
	return nil, nil
}

type fakeResolver struct {
	snapshots map[int64]*catalog.Snapshot
}

func (f *fakeResolver) Resolve(ctx context.Context, productID int64, variantID *int64) (*catalog.Snapshot, error) {
	snap, ok := f.snapshots[productID]
	if !ok {
		return nil, catalog.ErrItemNotFound
	}
	return snap, nil
}

type fakeIssuer struct {
	issued []string
	err    error
}

func (f *fakeIssuer) IssueTx(ctx context.Context, tx *sql.Tx, orderID int64, orderNumber string, totalCents int64, currency string) error {
	if f.err != nil {
		return f.err
	}
	f.issued = append(f.issued, orderNumber)
	return nil
}

type fixture struct {
	repo     *fakeRepo
	ledger   *fakeLedger
	resolver *fakeResolver
	recorder *events.Recorder
	issuer   *fakeIssuer
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newFakeRepo(),
		ledger:   newFakeLedger(),
		resolver: &fakeResolver{snapshots: make(map[int64]*catalog.Snapshot)},
		recorder: &events.Recorder{},
		issuer:   &fakeIssuer{},
	}
	f.repo.begin = f.ledger.checkpoint
	f.svc = NewService(f.repo, f.resolver, f.ledger, f.recorder, f.issuer)
	return f
}

func (f *fixture) addProduct(id int64, sku string, priceCents int64) {
	f.resolver.snapshots[id] = &catalog.Snapshot{
		Item:       inventory.ProductRef(id),
		ProductID:  id,
		Name:       sku,
		SKU:        sku,
		PriceCents: priceCents,
	}
}

func (f *fixture) seedOrder(status Status, items ...OrderItem) *Order {
	o := &Order{
		ID:          f.repo.nextID,
		OrderNumber: "ORD-20260831-SEED01",
		CustomerID:  42,
		Status:      status,
		TotalCents:  19000,
		Currency:    "USD",
		Items:       items,
	}
	f.repo.orders[o.ID] = o
	f.repo.nextID++
	return o
}

func TestCreateOrder_FreezesPricesAndTotals(t *testing.T) {
	f := newFixture()
	f.addProduct(1, "LAMP-01", 5000)
	f.addProduct(2, "PAD-01", 3000)

	o, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Items: []LineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		},
	}, 42, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, int64(19000), o.SubtotalCents)
	assert.Equal(t, int64(19000), o.TotalCents)
	assert.Equal(t, "USD", o.Currency)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"), o.OrderNumber)

	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(5000), o.Items[0].UnitPriceCents)
	assert.Equal(t, int64(10000), o.Items[0].SubtotalCents)
	assert.Equal(t, int64(9000), o.Items[1].SubtotalCents)

	// Creation never touches inventory.
	assert.Zero(t, f.ledger.reserves)
	assert.Zero(t, f.ledger.deducts)

	history, err := f.svc.ListStatusHistory(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusPending, history[0].FromStatus)
	assert.Equal(t, StatusPending, history[0].ToStatus)
}

func TestCreateOrder_Charges(t *testing.T) {
	f := newFixture()
	f.addProduct(1, "LAMP-01", 5000)

	o, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Items:            []LineInput{{ProductID: 1, Quantity: 1}},
		TaxCents:         500,
		ShippingFeeCents: 1000,
		DiscountCents:    250,
	}, 42, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), o.SubtotalCents)
	assert.Equal(t, int64(6250), o.TotalCents)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture()
	f.addProduct(1, "LAMP-01", 100)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{}, 42, nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Items: []LineInput{{ProductID: 1, Quantity: 0}},
	}, 42, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Items:    []LineInput{{ProductID: 1, Quantity: 1}},
		TaxCents: -1,
	}, 42, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Items:         []LineInput{{ProductID: 1, Quantity: 1}},
		DiscountCents: 200,
	}, 42, nil)
	assert.ErrorIs(t, err, ErrNegativeTotal)

	_, err = f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Items: []LineInput{{ProductID: 99, Quantity: 1}},
	}, 42, nil)
	assert.ErrorIs(t, err, catalog.ErrItemNotFound)

	assert.Zero(t, f.repo.createCalls)
}

func TestCreateOrder_RegeneratesNumberOnCollision(t *testing.T) {
	f := newFixture()
	f.addProduct(1, "LAMP-01", 5000)
	f.repo.createErrs = []error{
		&pq.Error{Code: "23505", Constraint: "orders_order_number_key"},
	}

	o, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Items: []LineInput{{ProductID: 1, Quantity: 1}},
	}, 42, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, f.repo.createCalls)
	require.Len(t, f.repo.numbers, 2)
	assert.NotEqual(t, f.repo.numbers[0], f.repo.numbers[1])
	assert.Equal(t, f.repo.numbers[1], o.OrderNumber)
}

func TestCreateOrder_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture()
	f.addProduct(1, "LAMP-01", 5000)
	collision := &pq.Error{Code: "23505", Constraint: "orders_order_number_key"}
	f.repo.createErrs = []error{collision, collision, collision}

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Items: []LineInput{{ProductID: 1, Quantity: 1}},
	}, 42, nil)
	assert.Error(t, err)
	assert.Equal(t, 3, f.repo.createCalls)
}

func TestConfirmOrder(t *testing.T) {
	f := newFixture()
	variantID := int64(5)
	o := f.seedOrder(StatusPending,
		OrderItem{ProductID: 1, ProductSKU: "LAMP-01", Quantity: 2},
		OrderItem{ProductID: 2, VariantID: &variantID, ProductSKU: "SHIRT-M", Quantity: 3},
	)
	f.ledger.set(inventory.ProductRef(1), 10, 0)
	f.ledger.set(inventory.VariantRef(5), 3, 0)

	actor := int64(1)
	confirmed, err := f.svc.ConfirmOrder(context.Background(), o.ID, &actor)
	require.NoError(t, err)

	assert.Equal(t, StatusProcessing, confirmed.Status)
	assert.Equal(t, 2, f.ledger.reserves)
	assert.Equal(t, 2, f.ledger.deducts)
	assert.Equal(t, int64(8), f.ledger.stock[inventory.ProductRef(1)].quantity)
	assert.Equal(t, int64(0), f.ledger.stock[inventory.ProductRef(1)].reserved)
	assert.Equal(t, int64(0), f.ledger.stock[inventory.VariantRef(5)].quantity)

	assert.Equal(t, []Status{StatusProcessing}, f.repo.statusUpdates)
	assert.Equal(t, []string{o.OrderNumber}, f.issuer.issued)

	require.Len(t, f.recorder.Events, 1)
	assert.Equal(t, events.EventOrderConfirmed, f.recorder.Events[0].EventType)
	payload, err := events.UnwrapPayload[events.OrderConfirmedPayload](f.recorder.Events[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, o.ID, payload.OrderID)
	assert.Len(t, payload.Items, 2)
}

func TestConfirmOrder_InsufficientStock(t *testing.T) {
	f := newFixture()
	o := f.seedOrder(StatusPending,
		OrderItem{ProductID: 1, ProductSKU: "LAMP-01", Quantity: 2},
		OrderItem{ProductID: 2, ProductSKU: "PAD-01", Quantity: 5},
	)
	f.ledger.set(inventory.ProductRef(1), 10, 0)
	f.ledger.set(inventory.ProductRef(2), 4, 0)

	_, err := f.svc.ConfirmOrder(context.Background(), o.ID, nil)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "PAD-01")

	// The transaction rolls back: no status change, invoice or event,
	// and the first item's deduction is undone.
	assert.Empty(t, f.repo.statusUpdates)
	assert.Empty(t, f.issuer.issued)
	assert.Empty(t, f.recorder.Events)
	assert.Equal(t, int64(10), f.ledger.stock[inventory.ProductRef(1)].quantity)
	assert.Equal(t, int64(0), f.ledger.stock[inventory.ProductRef(1)].reserved)
	assert.Equal(t, int64(4), f.ledger.stock[inventory.ProductRef(2)].quantity)
}

func TestConfirmOrder_OnlyFromPending(t *testing.T) {
	f := newFixture()
	o := f.seedOrder(StatusProcessing, OrderItem{ProductID: 1, Quantity: 1})

	_, err := f.svc.ConfirmOrder(context.Background(), o.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, f.ledger.reserves)
	assert.Empty(t, f.recorder.Events)
}

func TestConfirmOrder_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ConfirmOrder(context.Background(), 99, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelOrder_PendingSkipsInventory(t *testing.T) {
	f := newFixture()
	o := f.seedOrder(StatusPending, OrderItem{ProductID: 1, Quantity: 2})

	cancelled, err := f.svc.CancelOrder(context.Background(), o.ID, "changed my mind", nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "changed my mind", *cancelled.CancellationReason)
	assert.Zero(t, f.ledger.restores)

	require.Len(t, f.recorder.Events, 1)
	assert.Equal(t, events.EventOrderCancelled, f.recorder.Events[0].EventType)
}

func TestCancelOrder_ProcessingRestoresStock(t *testing.T) {
	f := newFixture()
	variantID := int64(5)
	o := f.seedOrder(StatusProcessing,
		OrderItem{ProductID: 1, Quantity: 2},
		OrderItem{ProductID: 2, VariantID: &variantID, Quantity: 3},
	)
	f.ledger.set(inventory.ProductRef(1), 8, 0)
	f.ledger.set(inventory.VariantRef(5), 0, 0)

	_, err := f.svc.CancelOrder(context.Background(), o.ID, "out of budget", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, f.ledger.restores)
	assert.Equal(t, int64(10), f.ledger.stock[inventory.ProductRef(1)].quantity)
	assert.Equal(t, int64(3), f.ledger.stock[inventory.VariantRef(5)].quantity)
}

func TestCancelOrder_RejectsLateLifecycle(t *testing.T) {
	f := newFixture()
	for _, status := range []Status{StatusShipped, StatusDelivered, StatusCancelled} {
		o := f.seedOrder(status, OrderItem{ProductID: 1, Quantity: 1})
		_, err := f.svc.CancelOrder(context.Background(), o.ID, "", nil)
		assert.ErrorIs(t, err, ErrInvalidState, string(status))
	}
	assert.Zero(t, f.ledger.restores)
	assert.Empty(t, f.recorder.Events)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture()
	o := f.seedOrder(StatusProcessing)

	err := f.svc.UpdateOrderStatus(context.Background(), o.ID, StatusShipped, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, f.repo.orders[o.ID].Status)

	err = f.svc.UpdateOrderStatus(context.Background(), o.ID, StatusDelivered, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, f.repo.orders[o.ID].Status)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture()
	o := f.seedOrder(StatusCancelled, OrderItem{ProductID: 1, Quantity: 1})

	require.NoError(t, f.svc.DeleteOrder(context.Background(), o.ID))

	_, err := f.svc.GetOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeleteOrder_RejectsInFlightOrders(t *testing.T) {
	f := newFixture()
	for _, status := range []Status{StatusPending, StatusProcessing, StatusShipped} {
		o := f.seedOrder(status, OrderItem{ProductID: 1, Quantity: 1})
		err := f.svc.DeleteOrder(context.Background(), o.ID)
		assert.ErrorIs(t, err, ErrInvalidState, string(status))

		_, err = f.svc.GetOrder(context.Background(), o.ID)
		assert.NoError(t, err, string(status))
	}
}

func TestUpdateOrderStatus_InvalidTransitions(t *testing.T) {
	f := newFixture()
	o := f.seedOrder(StatusPending)

	err := f.svc.UpdateOrderStatus(context.Background(), o.ID, StatusShipped, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = f.svc.UpdateOrderStatus(context.Background(), o.ID, Status("paid"), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// processing and cancelled go through confirm/cancel only.
	err = f.svc.UpdateOrderStatus(context.Background(), o.ID, StatusProcessing, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	err = f.svc.UpdateOrderStatus(context.Background(), o.ID, StatusCancelled, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Empty(t, f.repo.statusUpdates)
}
