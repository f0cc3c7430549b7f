package adjustment

import (
	"context"

	"tradepost/internal/core/id"
	"tradepost/internal/domain"
)

// Repository defines storage operations for stock adjustments.
type Repository interface {
	// Create inserts an adjustment document.
	Create(ctx context.Context, adj *StockAdjustment) error

	// GetByID retrieves an adjustment.
	GetByID(ctx context.Context, adjID id.ID) (*StockAdjustment, error)

	// UpdateEditable persists the only mutable fields: reason and
	// reference number.
	UpdateEditable(ctx context.Context, adjID id.ID, reason, referenceNumber string) error

	// List retrieves adjustment history.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockAdjustment], error)
}
