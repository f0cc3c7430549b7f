package supplier

import (
	"tradepost/internal/domain"
)

// Repository defines data access for suppliers.
type Repository interface {
	domain.CatalogRepository[*Supplier]
}
