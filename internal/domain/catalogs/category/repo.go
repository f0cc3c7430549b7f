package category

import (
	"tradepost/internal/domain"
)

// Repository defines data access for categories.
type Repository interface {
	domain.CatalogRepository[*Category]
}
