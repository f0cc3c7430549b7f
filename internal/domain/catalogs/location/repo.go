package location

import (
	"context"

	"tradepost/internal/domain"
)

// Repository defines data access for locations.
type Repository interface {
	domain.CatalogRepository[*Location]

	// ListByType returns active locations of the given type.
	ListByType(ctx context.Context, locType LocationType) ([]*Location, error)
}
