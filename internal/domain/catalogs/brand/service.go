package brand

import (
	"context"
	"time"

	"tradepost/internal/core/numerator"
	"tradepost/internal/core/tx"
	"tradepost/internal/domain"
)

// Service provides business logic for brands.
type Service struct {
	*domain.CatalogService[*Brand]

	numerator numerator.Generator
}

// NewService creates a brand service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Brand]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "brand",
	})

	svc := &Service{
		CatalogService: base,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, b *Brand) error {
	if b.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("BRD"), nil, time.Now())
		if err != nil {
			return err
		}
		b.Code = code
	}
	return nil
}
