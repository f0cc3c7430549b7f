package purchase

import (
	"context"

	"tradepost/internal/core/id"
	"tradepost/internal/domain"
)

// Repository defines storage operations for purchases.
type Repository interface {
	// Create inserts a purchase header.
	Create(ctx context.Context, p *Purchase) error

	// GetByID retrieves a purchase header (without lines).
	GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error)

	// GetForUpdate retrieves a purchase header with a row lock.
	GetForUpdate(ctx context.Context, purchaseID id.ID) (*Purchase, error)

	// Update persists header changes with optimistic locking.
	Update(ctx context.Context, p *Purchase) error

	// GetLines retrieves order lines, in line order.
	GetLines(ctx context.Context, purchaseID id.ID) ([]PurchaseLine, error)

	// SaveLines replaces the order lines.
	SaveLines(ctx context.Context, purchaseID id.ID, lines []PurchaseLine) error

	// SetDeletionMark soft-deletes or restores a purchase.
	SetDeletionMark(ctx context.Context, purchaseID id.ID, marked bool) error

	// List retrieves purchases matching the filter.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Purchase], error)
}
