package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "tradepost/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT: every call advances the
// counter by the requested increment and returns the new value.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, _ := args[0].(string)
	var increment int64 = 1
	if len(args) == 2 {
		if v, ok := args[1].(int64); ok {
			increment = v
		}
	}
	m.values[key] += increment
	return &mockRow{val: m.values[key]}
}

func TestGetNextNumber_AdjustmentFormat(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := context.Background()
	cfg := corenumerator.AdjustmentConfig()

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ADJ-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ADJ-00002", num)
}

func TestGetNextNumber_PurchaseFormat(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := context.Background()
	cfg := corenumerator.PurchaseConfig()
	period := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "PO2026090001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "PO2026090002", num)
}

func TestGetNextNumber_MonthlyReset(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.PurchaseConfig()

	september := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	october := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, nil, september)
	require.NoError(t, err)
	assert.Equal(t, "PO2026090001", num)

	// New month starts a fresh counter
	num, err = svc.GetNextNumber(ctx, cfg, nil, october)
	require.NoError(t, err)
	assert.Equal(t, "PO2026100001", num)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.AdjustmentConfig()
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	// First call allocates 1..10 from the DB
	num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ADJ-00001", num)
	assert.Equal(t, int64(10), q.values["ADJ"])

	// Second call served from memory, DB untouched
	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ADJ-00002", num)
	assert.Equal(t, int64(10), q.values["ADJ"])

	// Exhaust the range; next allocation bumps the DB counter again
	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
		require.NoError(t, err)
	}
	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ADJ-00011", num)
	assert.Equal(t, int64(20), q.values["ADJ"])
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("ADJ-00042"))
	assert.Equal(t, int64(-1), ParseNumber("no-digits-here-"))
	assert.Equal(t, int64(-1), ParseNumber(""))
}
