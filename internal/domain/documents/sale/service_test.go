package sale

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

// memSaleRepo is an in-memory Repository.
type memSaleRepo struct {
	sales map[id.ID]*Sale
	lines map[id.ID][]SaleLine
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{
		sales: make(map[id.ID]*Sale),
		lines: make(map[id.ID][]SaleLine),
	}
}

func (m *memSaleRepo) Create(ctx context.Context, s *Sale) error {
	cp := *s
	cp.Lines = nil
	m.sales[s.ID] = &cp
	return nil
}

func (m *memSaleRepo) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	s, ok := m.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	cp := *s
	return &cp, nil
}

func (m *memSaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error) {
	return m.GetByID(ctx, saleID)
}

func (m *memSaleRepo) Update(ctx context.Context, s *Sale) error {
	if _, ok := m.sales[s.ID]; !ok {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	cp := *s
	cp.Lines = nil
	m.sales[s.ID] = &cp
	return nil
}

func (m *memSaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]SaleLine, error) {
	return m.lines[saleID], nil
}

func (m *memSaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []SaleLine) error {
	m.lines[saleID] = append([]SaleLine(nil), lines...)
	return nil
}

func (m *memSaleRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	var items []*Sale
	for _, s := range m.sales {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		cp := *s
		items = append(items, &cp)
	}
	return domain.ListResult[*Sale]{Items: items, TotalCount: int64(len(items))}, nil
}

func (m *memSaleRepo) Stats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	stats := &Stats{TotalRevenue: types.Zero(), AverageSale: types.Zero()}
	for saleID, s := range m.sales {
		if s.Status != StatusCompleted {
			continue
		}
		if filter.LocationID != nil && s.LocationID != *filter.LocationID {
			continue
		}
		stats.TotalSales++
		stats.TotalRevenue = stats.TotalRevenue.Add(s.Total)
		for _, line := range m.lines[saleID] {
			stats.TotalItems += line.Quantity
		}
	}
	if stats.TotalSales > 0 {
		stats.AverageSale = types.RoundMoney(
			stats.TotalRevenue.Div(types.NewMoney(float64(stats.TotalSales))))
	}
	return stats, nil
}

// memIncomeRepo is an in-memory IncomeRepository.
type memIncomeRepo struct {
	incomes []Income
}

func (m *memIncomeRepo) Create(ctx context.Context, income *Income) error {
	m.incomes = append(m.incomes, *income)
	return nil
}

func (m *memIncomeRepo) ListBySale(ctx context.Context, saleID id.ID) ([]Income, error) {
	var result []Income
	for _, inc := range m.incomes {
		if inc.SaleID == saleID {
			result = append(result, inc)
		}
	}
	return result, nil
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
	svc     *Service
	repo    *memSaleRepo
	incomes *memIncomeRepo
	invRepo *memInventoryRepo
	records *inventory.Service
	product *product.Product
	store   *location.Location
}

func newTestEnv() *testEnv {
	invRepo := newMemInventoryRepo()
	records := inventory.NewService(invRepo, passthroughTx{}, events.NopPublisher{}, nil)
	repo := newMemSaleRepo()
	incomes := &memIncomeRepo{}

	p := product.NewProduct("PRD-00001", "Mechanical Keyboard")
	store := location.NewLocation("LOC-00001", "Downtown Store", location.TypeStore)

	products := &memProducts{products: map[id.ID]*product.Product{p.ID: p}}
	locations := &memLocations{locations: map[id.ID]*location.Location{store.ID: store}}

	seq := 0
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			seq++
			return fmt.Sprintf("SL-%04d%05d", period.Year(), seq), nil
		},
	}

	svc := NewService(repo, incomes, records, products, locations, gen, passthroughTx{}, events.NopPublisher{})

	return &testEnv{
		svc:     svc,
		repo:    repo,
		incomes: incomes,
		invRepo: invRepo,
		records: records,
		product: p,
		store:   store,
	}
}

func (e *testEnv) seedStock(t *testing.T, ctx context.Context, quantity int) *inventory.Record {
	t.Helper()
	record, err := e.records.Create(ctx, inventory.CreateInput{
		ProductID:       e.product.ID,
		LocationID:      e.store.ID,
		InitialQuantity: quantity,
	})
	require.NoError(t, err)
	return record
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:  id.New().String(),
		IsAdmin: true,
	})
}

func staffCtx(locationIDs ...string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:      id.New().String(),
		Roles:       []string{"staff"},
		LocationIDs: locationIDs,
	})
}

func TestRecalculateTotals(t *testing.T) {
	s := NewSale(id.New())
	s.TaxPct = types.NewPercent(10)
	s.Lines = []SaleLine{
		{ProductID: id.New(), Quantity: 3, UnitPrice: types.MustMoney("10.00")},
	}
	s.RecalculateTotals()

	assert.True(t, s.Subtotal.Equal(types.MustMoney("30.00")), "subtotal %s", s.Subtotal)
	assert.True(t, s.Total.Equal(types.MustMoney("33.00")), "total %s", s.Total)
	assert.Equal(t, 1, s.Lines[0].LineNo)
}

func TestRecalculateTotals_LineDiscountAndClamp(t *testing.T) {
	s := NewSale(id.New())
	s.Lines = []SaleLine{
		{ProductID: id.New(), Quantity: 2, UnitPrice: types.MustMoney("50.00"), Discount: types.NewPercent(25)},
	}
	s.RecalculateTotals()
	assert.True(t, s.Subtotal.Equal(types.MustMoney("75.00")), "subtotal %s", s.Subtotal)
	assert.True(t, s.Total.Equal(types.MustMoney("75.00")), "total %s", s.Total)

	// A full sale-level discount clamps the total at zero, never below.
	s.DiscountPct = types.NewPercent(100)
	s.RecalculateTotals()
	assert.True(t, s.Total.IsZero(), "total %s", s.Total)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestCreate_CompletedDeductsStockAndPostsIncome(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	record := env.seedStock(t, ctx, 50)

	created, err := env.svc.Create(ctx, CreateInput{
		LocationID:    env.store.ID,
		PaymentMethod: PaymentCash,
		TaxPct:        10,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 3, UnitPrice: 10.00},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^SL-\d{9}$`, created.Number)
	assert.Equal(t, StatusCompleted, created.Status)
	require.NotNil(t, created.CompletedAt)
	assert.True(t, created.Total.Equal(types.MustMoney("33.00")), "total %s", created.Total)

	updated, err := env.invRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 47, updated.Quantity)

	entries := env.invRepo.entries[record.ID]
	require.Len(t, entries, 2) // initial_stock + sale
	last := entries[len(entries)-1]
	assert.Equal(t, entity.ActionSale, last.Action)
	assert.Equal(t, -3, last.Delta)
	require.NotNil(t, last.SaleID)
	assert.Equal(t, created.ID, *last.SaleID)

	incomes, err := env.incomes.ListBySale(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, IncomeSourcePOS, incomes[0].Source)
	assert.True(t, incomes[0].Amount.Equal(types.MustMoney("33.00")), "income %s", incomes[0].Amount)
	assert.Equal(t, env.store.ID, incomes[0].LocationID)
}

func TestCreate_PendingHasNoStockEffect(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	record := env.seedStock(t, ctx, 50)

	created, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Status:     StatusPending,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 5, UnitPrice: 4.00},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Nil(t, created.CompletedAt)

	updated, err := env.invRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.Quantity)
	assert.Empty(t, env.incomes.incomes)

	// Completing later runs the same deduction and income posting.
	completed, err := env.svc.UpdateStatus(ctx, created.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	updated, err = env.invRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, updated.Quantity)

	incomes, err := env.incomes.ListBySale(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.True(t, incomes[0].Amount.Equal(types.MustMoney("20.00")), "income %s", incomes[0].Amount)
}

func TestCreate_AggregatesLineViolations(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, 10)

	_, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Items: []LineInput{
			{ProductID: id.New(), Quantity: 1, UnitPrice: 5.00},        // unknown product
			{ProductID: env.product.ID, Quantity: 60, UnitPrice: 5.00}, // more than stocked
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	violations, ok := appErr.Details["violations"].([]string)
	require.True(t, ok)
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0], "product does not exist")
	assert.Contains(t, violations[1], "insufficient stock")

	// Nothing was written.
	assert.Empty(t, env.repo.sales)
	assert.Empty(t, env.incomes.incomes)
	qty, _, err := env.records.CurrentQuantity(ctx, env.product.ID, env.store.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)
}

func TestCreate_NoInventoryRecord(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()

	_, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 1, UnitPrice: 5.00},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	violations, ok := appErr.Details["violations"].([]string)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "no inventory at this location")
}

func TestCreate_CancelledStatusRejected(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, 10)

	_, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Status:     StatusCancelled,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 1, UnitPrice: 5.00},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestCreate_LocationAccessDenied(t *testing.T) {
	env := newTestEnv()
	env.seedStock(t, adminCtx(), 10)

	ctx := staffCtx(id.New().String()) // scoped to some other location
	_, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 1, UnitPrice: 5.00},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestUpdateStatus_CancelPending(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	record := env.seedStock(t, ctx, 10)

	created, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Status:     StatusPending,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 2, UnitPrice: 5.00},
		},
	})
	require.NoError(t, err)

	cancelled, err := env.svc.UpdateStatus(ctx, created.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	updated, err := env.invRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Quantity)
	assert.Empty(t, env.incomes.incomes)
}

func TestUpdateStatus_CompletedIsTerminal(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, 10)

	created, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 2, UnitPrice: 5.00},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, created.Status)

	_, err = env.svc.UpdateStatus(ctx, created.ID, StatusCancelled)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIllegalTransition, appErr.Code)
}

func TestUpdateStatus_CompleteRechecksStock(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, 10)

	pending, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Status:     StatusPending,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 8, UnitPrice: 5.00},
		},
	})
	require.NoError(t, err)

	// Another sale drains the stock before the pending one completes.
	_, err = env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 7, UnitPrice: 5.00},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, pending.ID, StatusCompleted)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	violations, ok := appErr.Details["violations"].([]string)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "insufficient stock (requested 8, available 3)")
}

func TestStats_CompletedSalesOnly(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, 100)

	_, err := env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 3, UnitPrice: 10.00},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		TaxPct:     10,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 2, UnitPrice: 5.00},
		},
	})
	require.NoError(t, err)

	// Pending sales do not count.
	_, err = env.svc.Create(ctx, CreateInput{
		LocationID: env.store.ID,
		Status:     StatusPending,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 1, UnitPrice: 99.00},
		},
	})
	require.NoError(t, err)

	stats, err := env.svc.Stats(ctx, StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSales)
	assert.Equal(t, 5, stats.TotalItems)
	// 30.00 + 11.00
	assert.True(t, stats.TotalRevenue.Equal(types.MustMoney("41.00")), "revenue %s", stats.TotalRevenue)
	assert.True(t, stats.AverageSale.Equal(types.MustMoney("20.50")), "average %s", stats.AverageSale)
}

func TestGetByID_LoadsLines(t *testing.T) {
	env := newTestEnv()
	ctx := adminCtx()
	env.seedStock(t, ctx, 10)

	created, err := env.svc.Create(ctx, CreateInput{
		LocationID:    env.store.ID,
		PaymentMethod: PaymentCredit,
		Items: []LineInput{
			{ProductID: env.product.ID, Quantity: 2, UnitPrice: 5.00},
		},
	})
	require.NoError(t, err)

	got, err := env.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentCredit, got.PaymentMethod)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, env.product.ID, got.Lines[0].ProductID)
}
