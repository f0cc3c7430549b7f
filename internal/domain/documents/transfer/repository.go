package transfer

import (
	"context"

	"tradepost/internal/core/id"
	"tradepost/internal/domain"
)

// Repository defines storage operations for stock transfers.
type Repository interface {
	// Create inserts a transfer. A duplicate number surfaces as a
	// duplicate error; callers regenerate and retry.
	Create(ctx context.Context, t *StockTransfer) error

	// GetByID retrieves a transfer.
	GetByID(ctx context.Context, transferID id.ID) (*StockTransfer, error)

	// GetForUpdate retrieves a transfer with a row lock. Transitions
	// re-read under lock so two actors cannot ship the same transfer.
	GetForUpdate(ctx context.Context, transferID id.ID) (*StockTransfer, error)

	// Update persists transition state with optimistic locking.
	Update(ctx context.Context, t *StockTransfer) error

	// List retrieves transfers matching the filter.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockTransfer], error)
}
