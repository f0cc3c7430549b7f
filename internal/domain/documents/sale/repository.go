package sale

import (
	"context"

	"tradepost/internal/core/id"
	"tradepost/internal/domain"
)

// Repository persists sales and their lines.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate loads the sale with a row lock for status changes
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)
	Update(ctx context.Context, s *Sale) error

	GetLines(ctx context.Context, saleID id.ID) ([]SaleLine, error)
	SaveLines(ctx context.Context, saleID id.ID, lines []SaleLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)

	// Stats aggregates completed sales only
	Stats(ctx context.Context, filter StatsFilter) (*Stats, error)
}
