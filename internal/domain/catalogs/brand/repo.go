package brand

import (
	"tradepost/internal/domain"
)

// Repository defines data access for brands.
type Repository interface {
	domain.CatalogRepository[*Brand]
}
