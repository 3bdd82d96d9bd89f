package order

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/catalog"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
)

// flatFee 固定配送费报价
type flatFee int64

func (f flatFee) Quote(float64) int64 { return int64(f) }

// ---- 内存假件：用 map 模拟仓储，事务假件在失败时恢复快照模拟回滚 ----

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
	items  map[string][]OrderItem
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[string]*Order{}, items: map[string][]OrderItem{}}
}

func (r *memOrderRepo) Create(_ context.Context, o *Order, items []OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	r.items[o.ID] = append([]OrderItem(nil), items...)
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) Items(_ context.Context, orderID string) ([]OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OrderItem(nil), r.items[orderID]...), nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	if cur.Version != o.Version {
		return apperr.ErrConflict
	}
	cp := *o
	cp.Version = o.Version + 1
	r.orders[o.ID] = &cp
	o.Version = cp.Version
	return nil
}

func (r *memOrderRepo) List(_ context.Context, f ListFilter) ([]Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if f.PatientID != "" && o.PatientID != f.PatientID {
			continue
		}
		if f.PharmacyID != "" && o.PharmacyID != f.PharmacyID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

type memStockStore struct {
	mu     sync.Mutex
	byID   map[string]*catalog.PharmacyStock
	byKey  map[string]string // pharmacyID+"/"+medicationID -> stockID
	// conflictsLeft > 0 时 DecrementStock 先报冲突，模拟并发写竞争
	conflictsLeft int
}

func newMemStockStore() *memStockStore {
	return &memStockStore{byID: map[string]*catalog.PharmacyStock{}, byKey: map[string]string{}}
}

func (s *memStockStore) put(stock catalog.PharmacyStock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := stock
	s.byID[stock.ID] = &cp
	s.byKey[stock.PharmacyID+"/"+stock.MedicationID] = stock.ID
}

func (s *memStockStore) get(id string) catalog.PharmacyStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.byID[id]
}

func (s *memStockStore) FindStock(_ context.Context, pharmacyID, medicationID string) (*catalog.PharmacyStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[pharmacyID+"/"+medicationID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *memStockStore) DecrementStock(_ context.Context, stockID string, version int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return apperr.ErrConflict
	}
	stock, ok := s.byID[stockID]
	if !ok || stock.Version != version || stock.Quantity < qty {
		return apperr.ErrConflict
	}
	stock.Quantity -= qty
	stock.Available = stock.Quantity > 0
	stock.Version++
	return nil
}

func (s *memStockStore) RestoreStock(_ context.Context, stockID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, ok := s.byID[stockID]
	if !ok {
		return apperr.ErrNotFound
	}
	stock.Quantity += qty
	stock.Available = true
	stock.Version++
	return nil
}

// fakeTx 失败时恢复两个存储的快照，模拟数据库回滚。
type fakeTx struct {
	orders *memOrderRepo
	stocks *memStockStore
}

func (t fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ordersSnap := map[string]Order{}
	itemsSnap := map[string][]OrderItem{}
	stocksSnap := map[string]catalog.PharmacyStock{}
	t.orders.mu.Lock()
	for k, v := range t.orders.orders {
		ordersSnap[k] = *v
	}
	for k, v := range t.orders.items {
		itemsSnap[k] = append([]OrderItem(nil), v...)
	}
	t.orders.mu.Unlock()
	t.stocks.mu.Lock()
	for k, v := range t.stocks.byID {
		stocksSnap[k] = *v
	}
	t.stocks.mu.Unlock()

	err := fn(ctx)
	if err == nil {
		return nil
	}

	t.orders.mu.Lock()
	t.orders.orders = map[string]*Order{}
	for k, v := range ordersSnap {
		cp := v
		t.orders.orders[k] = &cp
	}
	t.orders.items = itemsSnap
	t.orders.mu.Unlock()
	t.stocks.mu.Lock()
	for k, v := range stocksSnap {
		cp := v
		t.stocks.byID[k] = &cp
	}
	t.stocks.mu.Unlock()
	return err
}

type fakeDirectory struct {
	pharmacy pharmacy.Pharmacy
	perms    map[string]pharmacy.Permissions
}

func (d *fakeDirectory) Get(_ context.Context, id string) (*pharmacy.Pharmacy, error) {
	if id != d.pharmacy.ID {
		return nil, apperr.ErrNotFound
	}
	cp := d.pharmacy
	return &cp, nil
}

func (d *fakeDirectory) EmployeePermissions(_ context.Context, _, userID string) (pharmacy.Permissions, error) {
	return d.perms[userID], nil
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(_ context.Context, _, title, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title)
	return nil
}

type fixture struct {
	svc      *Service
	orders   *memOrderRepo
	stocks   *memStockStore
	dir      *fakeDirectory
	notifier *captureNotifier
}

func newFixture() *fixture {
	orders := newMemOrderRepo()
	stocks := newMemStockStore()
	dir := &fakeDirectory{
		pharmacy: pharmacy.Pharmacy{
			ID:        "ph-1",
			OwnerID:   "owner-1",
			Status:    pharmacy.StatusApproved,
			Latitude:  48.8566,
			Longitude: 2.3522,
		},
		perms: map[string]pharmacy.Permissions{
			"staff-1": {
				Member:              true,
				CanConfirmOrders:    true,
				CanPrepareOrders:    true,
				CanAssignDeliveries: true,
				CanManageStock:      true,
			},
		},
	}
	notifier := &captureNotifier{}
	svc := NewService(orders, stocks, dir, flatFee(500), fakeTx{orders: orders, stocks: stocks}, notifier, nil)
	return &fixture{svc: svc, orders: orders, stocks: stocks, dir: dir, notifier: notifier}
}

func (f *fixture) seedStock(id, medicationID string, price int64, qty int) {
	f.stocks.put(catalog.PharmacyStock{
		ID:           id,
		PharmacyID:   "ph-1",
		MedicationID: medicationID,
		PriceCents:   price,
		Quantity:     qty,
		Available:    qty > 0,
	})
}

func (f *fixture) placeInput(lines ...LineInput) PlaceOrderInput {
	return PlaceOrderInput{
		PatientID:         "patient-1",
		PharmacyID:        "ph-1",
		Items:             lines,
		DeliveryAddress:   "12 rue de la Paix",
		DeliveryLatitude:  48.8570,
		DeliveryLongitude: 2.3530,
	}
}

var (
	patient = account.Actor{UserID: "patient-1", Role: account.RolePatient}
	staff   = account.Actor{UserID: "staff-1", Role: account.RolePharmacist}
)

func TestPlaceOrderSnapshotsPricesAndDecrementsStock(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 250, 10)

	o, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 3}))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, int64(750), o.ItemsTotalCents)
	assert.Equal(t, int64(500), o.DeliveryFeeCents)
	assert.Equal(t, int64(1250), o.TotalCents())

	stock := f.stocks.get("st-1")
	assert.Equal(t, 7, stock.Quantity)
	assert.True(t, stock.Available)

	items, err := f.svc.Items(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(250), items[0].UnitPriceCents)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 5)

	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 6}))
	assert.ErrorIs(t, err, apperr.ErrOutOfStock)

	stock := f.stocks.get("st-1")
	assert.Equal(t, 5, stock.Quantity)
}

func TestPlaceOrderUnknownMedication(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 5)

	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-nope", Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrUnknownMedication)
}

func TestPlaceOrderAllOrNothing(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 10)
	f.seedStock("st-2", "med-2", 200, 1)

	// 第二行缺货，第一行的扣减必须一并回滚
	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(
		LineInput{MedicationID: "med-1", Quantity: 2},
		LineInput{MedicationID: "med-2", Quantity: 5},
	))
	assert.ErrorIs(t, err, apperr.ErrOutOfStock)

	assert.Equal(t, 10, f.stocks.get("st-1").Quantity)
	assert.Equal(t, 1, f.stocks.get("st-2").Quantity)

	_, total, err := f.svc.List(context.Background(), ListFilter{PatientID: "patient-1"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPlaceOrderDrainedStockRejectsNextOrder(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 5)

	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 5}))
	require.NoError(t, err)

	stock := f.stocks.get("st-1")
	assert.Equal(t, 0, stock.Quantity)
	assert.False(t, stock.Available)

	_, err = f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrOutOfStock)
}

func TestPlaceOrderRetriesOnceOnConflict(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 10)
	f.stocks.conflictsLeft = 1

	o, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, 8, f.stocks.get("st-1").Quantity)
}

func TestPlaceOrderPersistentConflictReportsOutOfStock(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 10)
	f.stocks.conflictsLeft = 10

	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 2}))
	assert.ErrorIs(t, err, apperr.ErrOutOfStock)
	assert.Equal(t, 10, f.stocks.get("st-1").Quantity)
}

func TestPlaceOrderRejectsUnapprovedPharmacy(t *testing.T) {
	f := newFixture()
	f.dir.pharmacy.Status = pharmacy.StatusPending
	f.seedStock("st-1", "med-1", 100, 10)

	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 10)

	o, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 4}))
	require.NoError(t, err)
	require.Equal(t, 6, f.stocks.get("st-1").Quantity)

	cancelled, err := f.svc.Cancel(context.Background(), patient, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	stock := f.stocks.get("st-1")
	assert.Equal(t, 10, stock.Quantity)
	assert.True(t, stock.Available)
}

func TestCancelRejectedOncePreparing(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 10)

	o, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 2}))
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(context.Background(), o.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), staff, o.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkPreparing(context.Background(), staff, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), patient, o.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, got.Status)
	// 库存不回补
	assert.Equal(t, 8, f.stocks.get("st-1").Quantity)
}

func TestCancelByStrangerRejected(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 10)

	o, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 1}))
	require.NoError(t, err)

	stranger := account.Actor{UserID: "someone-else", Role: account.RolePatient}
	_, err = f.svc.Cancel(context.Background(), stranger, o.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestConfirmRequiresPermission(t *testing.T) {
	f := newFixture()
	f.dir.perms["limited-1"] = pharmacy.Permissions{Member: true, CanPrepareOrders: true}
	f.seedStock("st-1", "med-1", 100, 10)

	o, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(context.Background(), o.ID)
	require.NoError(t, err)

	limited := account.Actor{UserID: "limited-1", Role: account.RolePharmacist}
	_, err = f.svc.Confirm(context.Background(), limited, o.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// 持权员工可以
	_, err = f.svc.Confirm(context.Background(), staff, o.ID)
	assert.NoError(t, err)
}

func TestSkippingStatesRejected(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 10)

	o, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 1}))
	require.NoError(t, err)

	// PENDING 直接确认（跳过 PAID）
	_, err = f.svc.Confirm(context.Background(), staff, o.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestPlaceOrderNotifiesPatient(t *testing.T) {
	f := newFixture()
	f.seedStock("st-1", "med-1", 100, 10)

	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(LineInput{MedicationID: "med-1", Quantity: 1}))
	require.NoError(t, err)
	require.NotEmpty(t, f.notifier.messages)
	assert.Equal(t, "Order placed", f.notifier.messages[0])
}
