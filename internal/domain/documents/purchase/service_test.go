package purchase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepost/internal/core/apperror"
	appctx "tradepost/internal/core/context"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/core/numerator"
	"tradepost/internal/core/types"
	"tradepost/internal/domain"
	"tradepost/internal/domain/catalogs/location"
	"tradepost/internal/domain/catalogs/product"
	"tradepost/internal/domain/catalogs/supplier"
	"tradepost/internal/domain/events"
	"tradepost/internal/domain/inventory"
)

// memInventoryRepo is an in-memory inventory.Repository.
type memInventoryRepo struct {
	records map[id.ID]*inventory.Record
	entries map[id.ID][]entity.StockEntry
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{
		records: make(map[id.ID]*inventory.Record),
		entries: make(map[id.ID][]entity.StockEntry),
	}
}

func (m *memInventoryRepo) Create(ctx context.Context, record *inventory.Record) error {
	for _, r := range m.records {
		if r.ProductID == record.ProductID && r.LocationID == record.LocationID {
			return apperror.NewDuplicate("inventory record", "product and location", "")
		}
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *memInventoryRepo) GetByID(ctx context.Context, recordID id.ID) (*inventory.Record, error) {
	r, ok := m.records[recordID]
	if !ok {
		return nil, apperror.NewNotFound("inventory record", recordID.String())
	}
	cp := *r
	return &cp, nil
}

func (m *memInventoryRepo) GetByProductLocation(ctx context.Context, productID, locationID id.ID) (*inventory.Record, error) {
	for _, r := range m.records {
		if r.ProductID == productID && r.LocationID == locationID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("inventory record", fmt.Sprintf("%s@%s", productID, locationID))
}

func (m *memInventoryRepo) GetForUpdate(ctx context.Context, recordID id.ID) (*inventory.Record, error) {
	return m.GetByID(ctx, recordID)
}

func (m *memInventoryRepo) GetForUpdateByProductLocation(ctx context.Context, productID, locationID id.ID) (*inventory.Record, error) {
	return m.GetByProductLocation(ctx, productID, locationID)
}

func (m *memInventoryRepo) UpdateQuantity(ctx context.Context, recordID id.ID, quantity int) error {
	r, ok := m.records[recordID]
	if !ok {
		return apperror.NewNotFound("inventory record", recordID.String())
	}
	r.Quantity = quantity
	r.Version++
	return nil
}

func (m *memInventoryRepo) UpdateThresholds(ctx context.Context, recordID id.ID, minStock, notifyAt int) error {
	return nil
}

func (m *memInventoryRepo) MarkNotified(ctx context.Context, recordID id.ID, at time.Time) error {
	return nil
}

func (m *memInventoryRepo) AppendEntry(ctx context.Context, entry *entity.StockEntry) error {
	entry.Seq = int64(len(m.entries[entry.RecordID]) + 1)
	m.entries[entry.RecordID] = append(m.entries[entry.RecordID], *entry)
	return nil
}

func (m *memInventoryRepo) ListEntries(ctx context.Context, recordID id.ID, limit, offset int) ([]entity.StockEntry, error) {
	return m.entries[recordID], nil
}

func (m *memInventoryRepo) List(ctx context.Context, filter inventory.Filter) (inventory.ListResult, error) {
	return inventory.ListResult{}, nil
}

// memPurchaseRepo is an in-memory Repository.
type memPurchaseRepo struct {
	purchases map[id.ID]*Purchase
	lines     map[id.ID][]PurchaseLine
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{
		purchases: make(map[id.ID]*Purchase),
		lines:     make(map[id.ID][]PurchaseLine),
	}
}

func (m *memPurchaseRepo) Create(ctx context.Context, p *Purchase) error {
	cp := *p
	cp.Lines = nil
	m.purchases[p.ID] = &cp
	return nil
}

func (m *memPurchaseRepo) GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	p, ok := m.purchases[purchaseID]
	if !ok {
		return nil, apperror.NewNotFound("purchase", purchaseID.String())
	}
	cp := *p
	return &cp, nil
}

func (m *memPurchaseRepo) GetForUpdate(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	return m.GetByID(ctx, purchaseID)
}

func (m *memPurchaseRepo) Update(ctx context.Context, p *Purchase) error {
	if _, ok := m.purchases[p.ID]; !ok {
		return apperror.NewNotFound("purchase", p.ID.String())
	}
	cp := *p
	cp.Lines = nil
	m.purchases[p.ID] = &cp
	return nil
}

func (m *memPurchaseRepo) GetLines(ctx context.Context, purchaseID id.ID) ([]PurchaseLine, error) {
	return m.lines[purchaseID], nil
}

func (m *memPurchaseRepo) SaveLines(ctx context.Context, purchaseID id.ID, lines []PurchaseLine) error {
	m.lines[purchaseID] = append([]PurchaseLine(nil), lines...)
	return nil
}

func (m *memPurchaseRepo) SetDeletionMark(ctx context.Context, purchaseID id.ID, marked bool) error {
	p, ok := m.purchases[purchaseID]
	if !ok {
		return apperror.NewNotFound("purchase", purchaseID.String())
	}
	p.DeletionMark = marked
	return nil
}

func (m *memPurchaseRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Purchase], error) {
	var items []*Purchase
	for _, p := range m.purchases {
		if !filter.IncludeDeleted && p.DeletionMark {
			continue
		}
		cp := *p
		items = append(items, &cp)
	}
	return domain.ListResult[*Purchase]{Items: items, TotalCount: int64(len(items))}, nil
}

type memSuppliers struct {
	suppliers map[id.ID]*supplier.Supplier
}

func (m *memSuppliers) GetByID(ctx context.Context, entityID id.ID) (*supplier.Supplier, error) {
	s, ok := m.suppliers[entityID]
	if !ok {
		return nil, apperror.NewNotFound("supplier", entityID.String())
	}
	return s, nil
}

type memProducts struct {
	products map[id.ID]*product.Product
}

func (m *memProducts) GetByID(ctx context.Context, entityID id.ID) (*product.Product, error) {
	p, ok := m.products[entityID]
	if !ok {
		return nil, apperror.NewNotFound("product", entityID.String())
	}
	return p, nil
}

type memLocations struct {
	locations map[id.ID]*location.Location
}

func (m *memLocations) GetByID(ctx context.Context, entityID id.ID) (*location.Location, error) {
	l, ok := m.locations[entityID]
	if !ok {
		return nil, apperror.NewNotFound("location", entityID.String())
	}
	return l, nil
}

// passthroughTx runs callbacks directly, without a database.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTx) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	svc       *Service
	repo      *memPurchaseRepo
	invRepo   *memInventoryRepo
	records   *inventory.Service
	supplier  *supplier.Supplier
	product   *product.Product
	warehouse *location.Location
	suppliers *memSuppliers
	products  *memProducts
}

func newTestEnv() *testEnv {
	invRepo := newMemInventoryRepo()
	records := inventory.NewService(invRepo, passthroughTx{}, events.NopPublisher{}, nil)
	repo := newMemPurchaseRepo()

	sup := supplier.NewSupplier("SUP-00001", "Acme Wholesale")
	p := product.NewProduct("PRD-00001", "Mechanical Keyboard")
	wh := location.NewLocation("LOC-00001", "Central Warehouse", location.TypeWarehouse)

	suppliers := &memSuppliers{suppliers: map[id.ID]*supplier.Supplier{sup.ID: sup}}
	products := &memProducts{products: map[id.ID]*product.Product{p.ID: p}}
	locations := &memLocations{locations: map[id.ID]*location.Location{wh.ID: wh}}

	seq := 0
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			seq++
			return fmt.Sprintf("PO2026%02d%04d", period.Month(), seq), nil
		},
	}

	svc := NewService(repo, records, suppliers, products, locations, gen, passthroughTx{}, events.NopPublisher{})

	return &testEnv{
		svc:       svc,
		repo:      repo,
		invRepo:   invRepo,
		records:   records,
		supplier:  sup,
		product:   p,
		warehouse: wh,
		suppliers: suppliers,
		products:  products,
	}
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:  id.New().String(),
		IsAdmin: true,
	})
}

func TestRecalculateTotals(t *testing.T) {
	p := NewPurchase(id.New())
	p.Lines = []PurchaseLine{
		{ProductID: id.New(), Quantity: 10, UnitCost: types.MustMoney("2.50"), TaxRate: types.NewPercent(10)},
		{ProductID: id.New(), Quantity: 4, UnitCost: types.MustMoney("5.00"), Discount: types.NewPercent(25)},
	}
	p.ShippingCost = types.MustMoney("3.00")
	p.DiscountAmount = types.MustMoney("1.00")
	p.RecalculateTotals()

	// Line 1: 10 * 2.50 = 25.00, tax 2.50. Line 2: 4 * 5.00 * 0.75 = 15.00.
	assert.True(t, p.Lines[0].LineTotal.Equal(types.MustMoney("25.00")), "line 1 total %s", p.Lines[0].LineTotal)
	assert.True(t, p.Lines[0].TaxAmount.Equal(types.MustMoney("2.50")), "line 1 tax %s", p.Lines[0].TaxAmount)
	assert.True(t, p.Lines[1].LineTotal.Equal(types.MustMoney("15.00")), "line 2 total %s", p.Lines[1].LineTotal)
	assert.True(t, p.Subtotal.Equal(types.MustMoney("40.00")), "subtotal %s", p.Subtotal)
	// 40.00 + 2.50 + 3.00 - 1.00 = 44.50
	assert.True(t, p.GrandTotal.Equal(types.MustMoney("44.50")), "grand total %s", p.GrandTotal)
	assert.Equal(t, 1, p.Lines[0].LineNo)
	assert.Equal(t, 2, p.Lines[1].LineNo)
}

func TestCreate_AssignsNumberAndTotals(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	whID := env.warehouse.ID
	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID:  env.supplier.ID,
		WarehouseID: &whID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 12, UnitCost: 4.25},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^PO\d{10}$`, created.Number)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, PaymentUnpaid, created.PaymentStatus)
	assert.True(t, created.GrandTotal.Equal(types.MustMoney("51.00")), "grand total %s", created.GrandTotal)
	require.Len(t, env.repo.lines[created.ID], 1)
}

func TestCreate_NoItemsRejected(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Create(adminCtx(), CreateInput{SupplierID: env.supplier.ID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestReceive_CreditsWarehouseStock(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	whID := env.warehouse.ID
	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID:  env.supplier.ID,
		WarehouseID: &whID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 40, UnitCost: 2.00},
		},
	})
	require.NoError(t, err)

	received, err := env.svc.Receive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedDate)
	require.NotNil(t, received.ReceivedBy)

	// Record created on first introduction and credited.
	qty, exists, err := env.records.CurrentQuantity(ctx, env.product.ID, env.warehouse.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 40, qty)

	record, err := env.invRepo.GetByProductLocation(ctx, env.product.ID, env.warehouse.ID)
	require.NoError(t, err)
	entries := env.invRepo.entries[record.ID]
	require.Len(t, entries, 1)
	assert.Equal(t, entity.ActionPurchaseReceived, entries[0].Action)
	assert.Equal(t, 40, entries[0].Delta)
	require.NotNil(t, entries[0].PurchaseID)
	assert.Equal(t, created.ID, *entries[0].PurchaseID)
	assert.Equal(t,
		fmt.Sprintf("Received from PO#%s — Supplier: Acme Wholesale", created.Number),
		entries[0].Note)
}

func TestReceive_AlreadyReceived(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	whID := env.warehouse.ID
	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID:  env.supplier.ID,
		WarehouseID: &whID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 5, UnitCost: 1.00},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.Receive(ctx, created.ID)
	require.NoError(t, err)

	_, err = env.svc.Receive(ctx, created.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIllegalTransition, appErr.Code)

	// Re-receive attempt did not double-credit.
	qty, _, err := env.records.CurrentQuantity(ctx, env.product.ID, env.warehouse.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, qty)
}

func TestReceive_AggregatesViolations(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	whID := env.warehouse.ID
	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID:  env.supplier.ID,
		WarehouseID: &whID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 5, UnitCost: 1.00},
		},
	})
	require.NoError(t, err)

	// Supplier and product vanish before receiving.
	delete(env.suppliers.suppliers, env.supplier.ID)
	delete(env.products.products, env.product.ID)

	_, err = env.svc.Receive(ctx, created.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	violations, ok := appErr.Details["violations"].([]string)
	require.True(t, ok)
	assert.Len(t, violations, 2)

	// No stock moved.
	_, exists, err := env.records.CurrentQuantity(ctx, env.product.ID, env.warehouse.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReceive_WithoutWarehouse_NoStockEffect(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 5, UnitCost: 1.00},
		},
	})
	require.NoError(t, err)

	received, err := env.svc.Receive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, received.Status)
	assert.Empty(t, env.invRepo.records)
}

func TestRecordPayment_Progression(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 10, UnitCost: 10.00},
		},
	})
	require.NoError(t, err)
	require.True(t, created.GrandTotal.Equal(types.MustMoney("100.00")))

	p, err := env.svc.RecordPayment(ctx, created.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, PaymentPartial, p.PaymentStatus)
	assert.True(t, p.AmountDue().Equal(types.MustMoney("60.00")))

	p, err = env.svc.RecordPayment(ctx, created.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, p.PaymentStatus)
	assert.True(t, p.AmountDue().IsZero())
}

func TestRecordPayment_OverpayRejected(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 1, UnitCost: 10.00},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.RecordPayment(ctx, created.ID, 10.01)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestUpdate_ReceivedRefused(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	whID := env.warehouse.ID
	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID:  env.supplier.ID,
		WarehouseID: &whID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 5, UnitCost: 1.00},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.Receive(ctx, created.ID)
	require.NoError(t, err)

	_, err = env.svc.Update(ctx, created.ID, CreateInput{
		SupplierID: env.supplier.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 99, UnitCost: 1.00},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestDelete_ReceivedRefused(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	whID := env.warehouse.ID
	created, err := env.svc.Create(ctx, CreateInput{
		SupplierID:  env.supplier.ID,
		WarehouseID: &whID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 5, UnitCost: 1.00},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.Receive(ctx, created.ID)
	require.NoError(t, err)

	err = env.svc.Delete(ctx, created.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)

	// Unreceived purchases soft-delete fine.
	other, err := env.svc.Create(ctx, CreateInput{
		SupplierID: env.supplier.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 1, UnitCost: 1.00},
		},
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, other.ID))
	assert.True(t, env.repo.purchases[other.ID].DeletionMark)
}
