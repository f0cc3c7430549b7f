package transfer

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
	"tradepost/internal/domain"
	"tradepost/internal/domain/catalogs/location"
	"tradepost/internal/domain/catalogs/product"
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

// memTransferRepo is an in-memory Repository.
type memTransferRepo struct {
	transfers map[id.ID]*StockTransfer
}

func newMemTransferRepo() *memTransferRepo {
	return &memTransferRepo{transfers: make(map[id.ID]*StockTransfer)}
}

func (m *memTransferRepo) Create(ctx context.Context, t *StockTransfer) error {
	for _, existing := range m.transfers {
		if existing.Number == t.Number {
			return apperror.NewDuplicate("transfer", "number", t.Number)
		}
	}
	cp := *t
	m.transfers[t.ID] = &cp
	return nil
}

func (m *memTransferRepo) GetByID(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	t, ok := m.transfers[transferID]
	if !ok {
		return nil, apperror.NewNotFound("transfer", transferID.String())
	}
	cp := *t
	return &cp, nil
}

func (m *memTransferRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	return m.GetByID(ctx, transferID)
}

func (m *memTransferRepo) Update(ctx context.Context, t *StockTransfer) error {
	if _, ok := m.transfers[t.ID]; !ok {
		return apperror.NewNotFound("transfer", t.ID.String())
	}
	cp := *t
	m.transfers[t.ID] = &cp
	return nil
}

func (m *memTransferRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockTransfer], error) {
	var items []*StockTransfer
	for _, t := range m.transfers {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		cp := *t
		items = append(items, &cp)
	}
	return domain.ListResult[*StockTransfer]{Items: items, TotalCount: int64(len(items))}, nil
}

// memProducts resolves products from a fixed map.
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
	svc     *Service
	repo    *memTransferRepo
	invRepo *memInventoryRepo
	records *inventory.Service
	product *product.Product
	fromLoc *location.Location
	toLoc   *location.Location
}

func newTestEnv() *testEnv {
	invRepo := newMemInventoryRepo()
	records := inventory.NewService(invRepo, passthroughTx{}, events.NopPublisher{}, nil)
	repo := newMemTransferRepo()

	p := product.NewProduct("PRD-00001", "Mechanical Keyboard")
	fromLoc := location.NewLocation("LOC-00001", "Central Warehouse", location.TypeWarehouse)
	toLoc := location.NewLocation("LOC-00002", "Main Street Store", location.TypeStore)

	products := &memProducts{products: map[id.ID]*product.Product{p.ID: p}}
	locations := &memLocations{locations: map[id.ID]*location.Location{
		fromLoc.ID: fromLoc,
		toLoc.ID:   toLoc,
	}}

	svc := NewService(repo, records, products, locations, passthroughTx{}, events.NopPublisher{})

	return &testEnv{
		svc:     svc,
		repo:    repo,
		invRepo: invRepo,
		records: records,
		product: p,
		fromLoc: fromLoc,
		toLoc:   toLoc,
	}
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:  id.New().String(),
		IsAdmin: true,
	})
}

func (e *testEnv) seedStock(t *testing.T, ctx context.Context, locationID id.ID, quantity int) *inventory.Record {
	t.Helper()
	record, err := e.records.Create(ctx, inventory.CreateInput{
		ProductID:       e.product.ID,
		LocationID:      locationID,
		InitialQuantity: quantity,
	})
	require.NoError(t, err)
	return record
}

func TestNewTransferNumber(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		number, err := NewTransferNumber()
		require.NoError(t, err)
		assert.Regexp(t, `^TR-[0-9A-F]{8}$`, number)
		seen[number] = struct{}{}
	}
	// 100 draws from a 2^32 space should not collide.
	assert.Len(t, seen, 100)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusShipped, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusReceived, false},
		{StatusShipped, StatusReceived, true},
		{StatusShipped, StatusCancelled, true},
		{StatusShipped, StatusPending, false},
		{StatusReceived, StatusCancelled, false},
		{StatusReceived, StatusShipped, false},
		{StatusCancelled, StatusShipped, false},
		{StatusCancelled, StatusReceived, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}

	assert.True(t, StatusReceived.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}

func TestCreate_SameLocationRejected(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	_, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.fromLoc.ID,
		Quantity:       5,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Empty(t, env.repo.transfers)
}

func TestCreate_HasNoStockEffect(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, env.fromLoc.ID, 50)

	created, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       20,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Regexp(t, `^TR-[0-9A-F]{8}$`, created.Number)
	assert.NotEmpty(t, created.RequestedBy)

	qty, _, err := env.records.CurrentQuantity(ctx, env.product.ID, env.fromLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, qty)
}

func TestCreate_InactiveProductRejected(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.product.IsActive = false

	_, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       5,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestHappyPath_ShipAndReceive(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	fromRecord := env.seedStock(t, ctx, env.fromLoc.ID, 50)

	created, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       20,
	})
	require.NoError(t, err)

	shipped, err := env.svc.Ship(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)
	require.NotNil(t, shipped.ShippedBy)

	qty, _, err := env.records.CurrentQuantity(ctx, env.product.ID, env.fromLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, qty)

	received, err := env.svc.Receive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)

	// Destination record was created on first introduction.
	qty, exists, err := env.records.CurrentQuantity(ctx, env.product.ID, env.toLoc.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 20, qty)

	// Both audit logs back-reference the transfer.
	outEntries := env.invRepo.entries[fromRecord.ID]
	require.Len(t, outEntries, 2) // initial stock + transfer out
	out := outEntries[1]
	assert.Equal(t, entity.ActionTransferOut, out.Action)
	assert.Equal(t, -20, out.Delta)
	require.NotNil(t, out.TransferID)
	assert.Equal(t, created.ID, *out.TransferID)

	toRecord, err := env.invRepo.GetByProductLocation(ctx, env.product.ID, env.toLoc.ID)
	require.NoError(t, err)
	inEntries := env.invRepo.entries[toRecord.ID]
	require.Len(t, inEntries, 1)
	assert.Equal(t, entity.ActionTransferIn, inEntries[0].Action)
	assert.Equal(t, 20, inEntries[0].Delta)
	require.NotNil(t, inEntries[0].TransferID)
	assert.Equal(t, created.ID, *inEntries[0].TransferID)
}

func TestShip_InsufficientStock(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, env.fromLoc.ID, 10)

	created, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       15,
	})
	require.NoError(t, err)

	_, err = env.svc.Ship(ctx, created.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)

	// Still pending, stock untouched.
	reloaded, err := env.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, reloaded.Status)

	qty, _, err := env.records.CurrentQuantity(ctx, env.product.ID, env.fromLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)
}

func TestShip_NoSourceRecord(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	created, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       5,
	})
	require.NoError(t, err)

	_, err = env.svc.Ship(ctx, created.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 0, appErr.Details["available"])
}

func TestReceive_RequiresShipped(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, env.fromLoc.ID, 50)

	created, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       20,
	})
	require.NoError(t, err)

	_, err = env.svc.Receive(ctx, created.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIllegalTransition, appErr.Code)
}

func TestCancel_FromPending_NoStockEffect(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, env.fromLoc.ID, 50)

	created, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       20,
	})
	require.NoError(t, err)

	cancelled, err := env.svc.Cancel(ctx, created.ID, "requested in error")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "requested in error", *cancelled.CancellationReason)

	qty, _, err := env.records.CurrentQuantity(ctx, env.product.ID, env.fromLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, qty)
}

func TestCancel_AfterShip_RestoresSource(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	fromRecord := env.seedStock(t, ctx, env.fromLoc.ID, 50)

	created, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       20,
	})
	require.NoError(t, err)

	_, err = env.svc.Ship(ctx, created.ID)
	require.NoError(t, err)

	cancelled, err := env.svc.Cancel(ctx, created.ID, "truck broke down")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// Source restored, destination never touched.
	qty, _, err := env.records.CurrentQuantity(ctx, env.product.ID, env.fromLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, qty)

	_, exists, err := env.records.CurrentQuantity(ctx, env.product.ID, env.toLoc.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	// The compensation is its own ledger entry, not an erased shipment.
	entries := env.invRepo.entries[fromRecord.ID]
	require.Len(t, entries, 3)
	assert.Equal(t, entity.ActionTransferOut, entries[1].Action)
	assert.Equal(t, entity.ActionTransferOutReversed, entries[2].Action)
	assert.Equal(t, 20, entries[2].Delta)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, env.fromLoc.ID, 50)

	created, err := env.svc.Create(ctx, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       10,
	})
	require.NoError(t, err)

	_, err = env.svc.Ship(ctx, created.ID)
	require.NoError(t, err)
	_, err = env.svc.Receive(ctx, created.ID)
	require.NoError(t, err)

	for _, attempt := range []func() error{
		func() error { _, err := env.svc.Ship(ctx, created.ID); return err },
		func() error { _, err := env.svc.Receive(ctx, created.ID); return err },
		func() error { _, err := env.svc.Cancel(ctx, created.ID, ""); return err },
	} {
		err := attempt()
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeIllegalTransition, appErr.Code)
	}
}

func TestShip_RequiresSourceAccess(t *testing.T) {
	env := newTestEnv()
	admin := adminCtx()
	env.seedStock(t, admin, env.fromLoc.ID, 50)

	created, err := env.svc.Create(admin, CreateInput{
		ProductID:      env.product.ID,
		FromLocationID: env.fromLoc.ID,
		ToLocationID:   env.toLoc.ID,
		Quantity:       10,
	})
	require.NoError(t, err)

	// Staff scoped to the destination only cannot ship from the source.
	staffCtx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:      id.New().String(),
		Roles:       []string{"staff"},
		LocationIDs: []string{env.toLoc.ID.String()},
	})

	_, err = env.svc.Ship(staffCtx, created.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}
