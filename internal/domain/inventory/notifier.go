package inventory

import "context"

// MultiNotifier fans one low-stock alert out to several notifiers.
type MultiNotifier []LowStockNotifier

var _ LowStockNotifier = (MultiNotifier)(nil)

func (m MultiNotifier) NotifyLowStock(ctx context.Context, record *Record) {
	for _, n := range m {
		n.NotifyLowStock(ctx, record)
	}
}
