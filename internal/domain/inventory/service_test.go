package inventory

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
	"tradepost/internal/domain/events"
)

// memRepo is an in-memory inventory.Repository for service tests.
type memRepo struct {
	records map[id.ID]*Record
	entries map[id.ID][]entity.StockEntry

	failCreateOnce bool
	notified       map[id.ID]time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		records:  make(map[id.ID]*Record),
		entries:  make(map[id.ID][]entity.StockEntry),
		notified: make(map[id.ID]time.Time),
	}
}

func (m *memRepo) Create(ctx context.Context, record *Record) error {
	if m.failCreateOnce {
		m.failCreateOnce = false
		return apperror.NewDuplicate("inventory record", "product and location", "")
	}
	for _, r := range m.records {
		if r.ProductID == record.ProductID && r.LocationID == record.LocationID {
			return apperror.NewDuplicate("inventory record", "product and location", "")
		}
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, recordID id.ID) (*Record, error) {
	r, ok := m.records[recordID]
	if !ok {
		return nil, apperror.NewNotFound("inventory record", recordID.String())
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) GetByProductLocation(ctx context.Context, productID, locationID id.ID) (*Record, error) {
	for _, r := range m.records {
		if r.ProductID == productID && r.LocationID == locationID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("inventory record", fmt.Sprintf("%s@%s", productID, locationID))
}

func (m *memRepo) GetForUpdate(ctx context.Context, recordID id.ID) (*Record, error) {
	return m.GetByID(ctx, recordID)
}

func (m *memRepo) GetForUpdateByProductLocation(ctx context.Context, productID, locationID id.ID) (*Record, error) {
	return m.GetByProductLocation(ctx, productID, locationID)
}

func (m *memRepo) UpdateQuantity(ctx context.Context, recordID id.ID, quantity int) error {
	r, ok := m.records[recordID]
	if !ok {
		return apperror.NewNotFound("inventory record", recordID.String())
	}
	r.Quantity = quantity
	r.Version++
	return nil
}

func (m *memRepo) UpdateThresholds(ctx context.Context, recordID id.ID, minStock, notifyAt int) error {
	r, ok := m.records[recordID]
	if !ok {
		return apperror.NewNotFound("inventory record", recordID.String())
	}
	r.MinStock = minStock
	r.NotifyAt = notifyAt
	return nil
}

func (m *memRepo) MarkNotified(ctx context.Context, recordID id.ID, at time.Time) error {
	m.notified[recordID] = at
	if r, ok := m.records[recordID]; ok {
		r.LastNotified = &at
	}
	return nil
}

func (m *memRepo) AppendEntry(ctx context.Context, entry *entity.StockEntry) error {
	entry.Seq = int64(len(m.entries[entry.RecordID]) + 1)
	m.entries[entry.RecordID] = append(m.entries[entry.RecordID], *entry)
	return nil
}

func (m *memRepo) ListEntries(ctx context.Context, recordID id.ID, limit, offset int) ([]entity.StockEntry, error) {
	return m.entries[recordID], nil
}

func (m *memRepo) List(ctx context.Context, filter Filter) (ListResult, error) {
	var items []*Record
	for _, r := range m.records {
		if len(filter.LocationIDs) > 0 {
			found := false
			for _, locID := range filter.LocationIDs {
				if r.LocationID.String() == locID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		cp := *r
		items = append(items, &cp)
	}
	return ListResult{Items: items, TotalCount: int64(len(items))}, nil
}

// passthroughTx runs callbacks directly, without a database.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTx) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type captureNotifier struct {
	calls []id.ID
}

func (n *captureNotifier) NotifyLowStock(ctx context.Context, record *Record) {
	n.calls = append(n.calls, record.ID)
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, passthroughTx{}, events.NopPublisher{}, nil)
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:  id.New().String(),
		IsAdmin: true,
	})
}

func TestCreate_WithInitialStock(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := adminCtx()

	productID, locationID := id.New(), id.New()

	record, err := svc.Create(ctx, CreateInput{
		ProductID:       productID,
		LocationID:      locationID,
		InitialQuantity: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, record.Quantity)

	entries := repo.entries[record.ID]
	require.Len(t, entries, 1)
	assert.Equal(t, entity.ActionInitialStock, entries[0].Action)
	assert.Equal(t, 50, entries[0].Delta)
	assert.Equal(t, 50, entries[0].NewQuantity)
}

func TestCreate_LocationAccessDenied(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	ownLocation, otherLocation := id.New(), id.New()
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:      id.New().String(),
		Roles:       []string{"manager"},
		LocationIDs: []string{ownLocation.String()},
	})

	_, err := svc.Create(ctx, CreateInput{
		ProductID:       id.New(),
		LocationID:      otherLocation,
		InitialQuantity: 50,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)

	// Nothing reached the store.
	result, err := svc.List(adminCtx(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestCreate_DuplicatePair(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := adminCtx()

	productID, locationID := id.New(), id.New()

	_, err := svc.Create(ctx, CreateInput{ProductID: productID, LocationID: locationID})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{ProductID: productID, LocationID: locationID})
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicate(err))
}

func TestApplyDelta(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := adminCtx()

	record, err := svc.Create(ctx, CreateInput{
		ProductID:       id.New(),
		LocationID:      id.New(),
		InitialQuantity: 10,
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		delta     int
		wantQty   int
		wantError string
	}{
		{name: "positive delta", delta: 5, wantQty: 15},
		{name: "negative delta", delta: -8, wantQty: 7},
		{name: "zero delta rejected", delta: 0, wantError: apperror.CodeValidation},
		{name: "negative stock rejected", delta: -100, wantError: apperror.CodeNegativeStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := svc.ApplyDelta(ctx, record.ID, tt.delta,
				entity.ActionAdjustment, "test", entity.EntryRefs{}, "tester")

			if tt.wantError != "" {
				require.Error(t, err)
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantError, appErr.Code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, updated.Quantity)
		})
	}
}

func TestApplyDelta_AuditTrailConsistency(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := adminCtx()

	record, err := svc.Create(ctx, CreateInput{
		ProductID:       id.New(),
		LocationID:      id.New(),
		InitialQuantity: 50,
	})
	require.NoError(t, err)

	// Subtraction then equal addition restores the quantity and extends
	// the log by exactly two entries.
	_, err = svc.ApplyDelta(ctx, record.ID, -20, entity.ActionAdjustment, "", entity.EntryRefs{}, "tester")
	require.NoError(t, err)
	updated, err := svc.ApplyDelta(ctx, record.ID, 20, entity.ActionAdjustment, "", entity.EntryRefs{}, "tester")
	require.NoError(t, err)

	assert.Equal(t, 50, updated.Quantity)

	entries := repo.entries[record.ID]
	require.Len(t, entries, 3)

	sum := 0
	for _, e := range entries {
		sum += e.Delta
	}
	assert.Equal(t, updated.Quantity, sum, "sum of deltas equals current quantity")
	assert.Equal(t, updated.Quantity, entries[len(entries)-1].NewQuantity, "tail entry matches record")
}

func TestUpsertOnIntroduction_RetriesOnDuplicate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := adminCtx()

	productID, locationID := id.New(), id.New()

	// Simulate losing the first-insert race: Create fails once, then the
	// winner's record is visible.
	winner := NewRecord(productID, locationID, "other")
	repo.records[winner.ID] = winner
	repo.failCreateOnce = true

	record, err := svc.UpsertOnIntroduction(ctx, productID, locationID, "tester")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, record.ID)
}

func TestCurrentQuantity(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := adminCtx()

	productID, locationID := id.New(), id.New()

	qty, exists, err := svc.CurrentQuantity(ctx, productID, locationID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, qty)

	_, err = svc.Create(ctx, CreateInput{ProductID: productID, LocationID: locationID, InitialQuantity: 7})
	require.NoError(t, err)

	qty, exists, err = svc.CurrentQuantity(ctx, productID, locationID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 7, qty)
}

func TestList_RestrictsToAccessibleLocations(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	locA, locB := id.New(), id.New()
	adminContext := adminCtx()

	_, err := svc.Create(adminContext, CreateInput{ProductID: id.New(), LocationID: locA})
	require.NoError(t, err)
	_, err = svc.Create(adminContext, CreateInput{ProductID: id.New(), LocationID: locB})
	require.NoError(t, err)

	staffCtx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:      id.New().String(),
		Roles:       []string{"staff"},
		LocationIDs: []string{locA.String()},
	})

	result, err := svc.List(staffCtx, Filter{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, locA, result.Items[0].LocationID)
}

func TestCheckLowStock_Cooldown(t *testing.T) {
	repo := newMemRepo()
	notifier := &captureNotifier{}
	svc := NewService(repo, passthroughTx{}, events.NopPublisher{}, notifier)
	ctx := adminCtx()

	record, err := svc.Create(ctx, CreateInput{
		ProductID:       id.New(),
		LocationID:      id.New(),
		InitialQuantity: 3,
		NotifyAt:        5,
	})
	require.NoError(t, err)

	svc.CheckLowStock(ctx, record)
	require.Len(t, notifier.calls, 1)

	// Second check within the cooldown window stays silent.
	svc.CheckLowStock(ctx, record)
	assert.Len(t, notifier.calls, 1)

	// After the window passes, alerts fire again.
	stale := time.Now().Add(-25 * time.Hour)
	record.LastNotified = &stale
	svc.CheckLowStock(ctx, record)
	assert.Len(t, notifier.calls, 2)
}
