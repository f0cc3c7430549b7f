package adjustment

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
	"tradepost/internal/domain"
	"tradepost/internal/domain/events"
	"tradepost/internal/domain/inventory"
)

// memInventoryRepo is an in-memory inventory.Repository backing the record
// keeper in these tests.
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
	r, ok := m.records[recordID]
	if !ok {
		return apperror.NewNotFound("inventory record", recordID.String())
	}
	r.MinStock = minStock
	r.NotifyAt = notifyAt
	return nil
}

func (m *memInventoryRepo) MarkNotified(ctx context.Context, recordID id.ID, at time.Time) error {
	if r, ok := m.records[recordID]; ok {
		r.LastNotified = &at
	}
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
	var items []*inventory.Record
	for _, r := range m.records {
		cp := *r
		items = append(items, &cp)
	}
	return inventory.ListResult{Items: items, TotalCount: int64(len(items))}, nil
}

// memAdjustmentRepo is an in-memory Repository.
type memAdjustmentRepo struct {
	adjustments map[id.ID]*StockAdjustment
	order       []id.ID
}

func newMemAdjustmentRepo() *memAdjustmentRepo {
	return &memAdjustmentRepo{adjustments: make(map[id.ID]*StockAdjustment)}
}

func (m *memAdjustmentRepo) Create(ctx context.Context, adj *StockAdjustment) error {
	cp := *adj
	m.adjustments[adj.ID] = &cp
	m.order = append(m.order, adj.ID)
	return nil
}

func (m *memAdjustmentRepo) GetByID(ctx context.Context, adjID id.ID) (*StockAdjustment, error) {
	a, ok := m.adjustments[adjID]
	if !ok {
		return nil, apperror.NewNotFound("stock adjustment", adjID.String())
	}
	cp := *a
	return &cp, nil
}

func (m *memAdjustmentRepo) UpdateEditable(ctx context.Context, adjID id.ID, reason, referenceNumber string) error {
	a, ok := m.adjustments[adjID]
	if !ok {
		return apperror.NewNotFound("stock adjustment", adjID.String())
	}
	a.Reason = reason
	a.ReferenceNumber = referenceNumber
	a.Version++
	return nil
}

func (m *memAdjustmentRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockAdjustment], error) {
	var items []*StockAdjustment
	for _, adjID := range m.order {
		a := m.adjustments[adjID]
		if filter.ProductID != nil && a.ProductID != *filter.ProductID {
			continue
		}
		if filter.LocationID != nil && a.LocationID != *filter.LocationID {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	return domain.ListResult[*StockAdjustment]{Items: items, TotalCount: int64(len(items))}, nil
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
	repo    *memAdjustmentRepo
	invRepo *memInventoryRepo
	records *inventory.Service
}

func newTestEnv() *testEnv {
	invRepo := newMemInventoryRepo()
	records := inventory.NewService(invRepo, passthroughTx{}, events.NopPublisher{}, nil)
	repo := newMemAdjustmentRepo()

	seq := 0
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			seq++
			return fmt.Sprintf("ADJ-%05d", seq), nil
		},
	}

	return &testEnv{
		svc:     NewService(repo, records, gen, passthroughTx{}, events.NopPublisher{}),
		repo:    repo,
		invRepo: invRepo,
		records: records,
	}
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:  id.New().String(),
		IsAdmin: true,
	})
}

func (e *testEnv) seedRecord(t *testing.T, ctx context.Context, productID, locationID id.ID, quantity int) *inventory.Record {
	t.Helper()
	record, err := e.records.Create(ctx, inventory.CreateInput{
		ProductID:       productID,
		LocationID:      locationID,
		InitialQuantity: quantity,
	})
	require.NoError(t, err)
	return record
}

func TestSignedDelta(t *testing.T) {
	tests := []struct {
		name           string
		adjType        AdjustmentType
		quantity       int
		signedQuantity int
		want           int
		wantErr        bool
	}{
		{name: "addition", adjType: TypeAddition, quantity: 10, want: 10},
		{name: "correction", adjType: TypeCorrection, quantity: 7, want: 7},
		{name: "initial stock", adjType: TypeInitialStock, quantity: 100, want: 100},
		{name: "transfer in", adjType: TypeTransferIn, quantity: 5, want: 5},
		{name: "return", adjType: TypeReturn, quantity: 3, want: 3},
		{name: "subtraction", adjType: TypeSubtraction, quantity: 10, want: -10},
		{name: "damage", adjType: TypeDamage, quantity: 4, want: -4},
		{name: "theft", adjType: TypeTheft, quantity: 2, want: -2},
		{name: "transfer out", adjType: TypeTransferOut, quantity: 5, want: -5},
		{name: "obsolete", adjType: TypeObsolete, quantity: 8, want: -8},
		{name: "other positive", adjType: TypeOther, quantity: 6, signedQuantity: 6, want: 6},
		{name: "other negative", adjType: TypeOther, quantity: 6, signedQuantity: -6, want: -6},
		{name: "cycle count down", adjType: TypeCycleCountAdj, quantity: 9, signedQuantity: -9, want: -9},
		{name: "other missing sign", adjType: TypeOther, quantity: 6, wantErr: true},
		{name: "sign magnitude mismatch", adjType: TypeCycleCountAdj, quantity: 9, signedQuantity: -4, wantErr: true},
		{name: "zero quantity", adjType: TypeAddition, quantity: 0, wantErr: true},
		{name: "negative quantity", adjType: TypeDamage, quantity: -3, wantErr: true},
		{name: "unknown type", adjType: AdjustmentType("Shrinkage"), quantity: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignedDelta(tt.adjType, tt.quantity, tt.signedQuantity)
			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, apperror.CodeValidation, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateBatch_AppliesDeltas(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	locationID := id.New()
	productA, productB := id.New(), id.New()

	recA := env.seedRecord(t, ctx, productA, locationID, 100)
	recB := env.seedRecord(t, ctx, productB, locationID, 20)

	created, err := env.svc.CreateBatch(ctx, BatchInput{
		LocationID: locationID,
		Items: []BatchItem{
			{ProductID: productA, Type: TypeAddition, Quantity: 10, Reason: "restock"},
			{ProductID: productB, Type: TypeDamage, Quantity: 5, Reason: "water damage"},
		},
		ReferenceNumber: "CYCLE-2026-09",
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, "ADJ-00001", created[0].Number)
	assert.Equal(t, "ADJ-00002", created[1].Number)

	assert.Equal(t, 100, created[0].PreviousQuantity)
	assert.Equal(t, 110, created[0].NewQuantity)
	assert.Equal(t, 10, created[0].QuantityAdjusted)
	assert.Equal(t, 10, created[0].Delta())

	assert.Equal(t, 20, created[1].PreviousQuantity)
	assert.Equal(t, 15, created[1].NewQuantity)
	assert.Equal(t, 5, created[1].QuantityAdjusted)
	assert.Equal(t, -5, created[1].Delta())

	for _, adj := range created {
		assert.Equal(t, "CYCLE-2026-09", adj.ReferenceNumber)
		assert.NotEmpty(t, adj.CreatedBy)
	}

	qty, _, err := env.records.CurrentQuantity(ctx, productA, locationID)
	require.NoError(t, err)
	assert.Equal(t, 110, qty)

	qty, _, err = env.records.CurrentQuantity(ctx, productB, locationID)
	require.NoError(t, err)
	assert.Equal(t, 15, qty)

	// Each applied delta leaves an audit entry referencing the adjustment.
	entriesA := env.invRepo.entries[recA.ID]
	require.Len(t, entriesA, 2) // initial stock + addition
	last := entriesA[len(entriesA)-1]
	assert.Equal(t, entity.ActionAdjustment, last.Action)
	require.NotNil(t, last.AdjustmentID)
	assert.Equal(t, created[0].ID, *last.AdjustmentID)

	require.Len(t, env.invRepo.entries[recB.ID], 2)
}

func TestCreateBatch_ValidatesBeforeMutation(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	locationID := id.New()
	productID := id.New()

	env.seedRecord(t, ctx, productID, locationID, 40)

	_, err := env.svc.CreateBatch(ctx, BatchInput{
		LocationID: locationID,
		Items: []BatchItem{
			{ProductID: productID, Type: TypeAddition, Quantity: 10},
			{ProductID: productID, Type: AdjustmentType("Bogus"), Quantity: 1},
		},
	})
	require.Error(t, err)

	// The invalid second item must be rejected before any stock moved.
	qty, _, err := env.records.CurrentQuantity(ctx, productID, locationID)
	require.NoError(t, err)
	assert.Equal(t, 40, qty)
	assert.Empty(t, env.repo.adjustments)
}

func TestCreateBatch_InventoryMissing(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	locationID := id.New()

	_, err := env.svc.CreateBatch(ctx, BatchInput{
		LocationID: locationID,
		Items: []BatchItem{
			{ProductID: id.New(), Type: TypeAddition, Quantity: 10},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInventoryMissing, appErr.Code)
}

func TestCreateBatch_InitialStockCreatesRecord(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	locationID := id.New()
	productID := id.New()

	created, err := env.svc.CreateBatch(ctx, BatchInput{
		LocationID: locationID,
		Items: []BatchItem{
			{ProductID: productID, Type: TypeInitialStock, Quantity: 30},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 0, created[0].PreviousQuantity)
	assert.Equal(t, 30, created[0].NewQuantity)

	qty, exists, err := env.records.CurrentQuantity(ctx, productID, locationID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 30, qty)
}

func TestCreateBatch_NegativeStockRejected(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	locationID := id.New()
	productID := id.New()

	env.seedRecord(t, ctx, productID, locationID, 5)

	_, err := env.svc.CreateBatch(ctx, BatchInput{
		LocationID: locationID,
		Items: []BatchItem{
			{ProductID: productID, Type: TypeTheft, Quantity: 6},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNegativeStock, appErr.Code)
}

func TestCreateBatch_LocationAccessDenied(t *testing.T) {
	env := newTestEnv()
	locationID := id.New()

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:      id.New().String(),
		Roles:       []string{"staff"},
		LocationIDs: []string{id.New().String()},
	})

	_, err := env.svc.CreateBatch(ctx, BatchInput{
		LocationID: locationID,
		Items: []BatchItem{
			{ProductID: id.New(), Type: TypeAddition, Quantity: 1},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestAdjustSingle(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	locationID := id.New()
	productID := id.New()

	record := env.seedRecord(t, ctx, productID, locationID, 12)

	adj, err := env.svc.AdjustSingle(ctx, record.ID, TypeSubtraction, 2, 0, "breakage")
	require.NoError(t, err)
	assert.Equal(t, 12, adj.PreviousQuantity)
	assert.Equal(t, 10, adj.NewQuantity)
	assert.Equal(t, "breakage", adj.Reason)
}

func TestUpdate_OnlyEditableFields(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	locationID := id.New()
	productID := id.New()

	env.seedRecord(t, ctx, productID, locationID, 50)

	created, err := env.svc.CreateBatch(ctx, BatchInput{
		LocationID: locationID,
		Items: []BatchItem{
			{ProductID: productID, Type: TypeAddition, Quantity: 5, Reason: "original"},
		},
	})
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, created[0].ID, "corrected reason", "REF-42")
	require.NoError(t, err)
	assert.Equal(t, "corrected reason", updated.Reason)
	assert.Equal(t, "REF-42", updated.ReferenceNumber)
	assert.Equal(t, created[0].NewQuantity, updated.NewQuantity)
	assert.Equal(t, created[0].QuantityAdjusted, updated.QuantityAdjusted)

	// Stock level is untouched by the edit.
	qty, _, err := env.records.CurrentQuantity(ctx, productID, locationID)
	require.NoError(t, err)
	assert.Equal(t, 55, qty)
}

func TestDelete_AlwaysRefused(t *testing.T) {
	env := newTestEnv()

	err := env.svc.Delete(adminCtx(), id.New())
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}
