package supplier

import (
	"context"
	"time"

	"tradepost/internal/core/numerator"
	"tradepost/internal/core/tx"
	"tradepost/internal/domain"
)

// Service provides business logic for suppliers.
type Service struct {
	*domain.CatalogService[*Supplier]

	repo      Repository
	numerator numerator.Generator
}

// NewService creates a supplier service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Supplier]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "supplier",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, sup *Supplier) error {
	if sup.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SUP"), nil, time.Now())
		if err != nil {
			return err
		}
		sup.Code = code
	}
	return nil
}
