package location

import (
	"context"
	"time"

	"tradepost/internal/core/id"
	"tradepost/internal/core/numerator"
	"tradepost/internal/core/tx"
	"tradepost/internal/domain"
	"tradepost/pkg/logger"
)

// Service provides business logic for locations.
type Service struct {
	*domain.CatalogService[*Location]

	repo      Repository
	numerator numerator.Generator
}

// NewService creates a location service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Location]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "location",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, loc *Location) error {
	if loc.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("LOC"), nil, time.Now())
		if err != nil {
			return err
		}
		loc.Code = code
	}
	return nil
}

// ListStores returns all active store locations.
func (s *Service) ListStores(ctx context.Context) ([]*Location, error) {
	return s.repo.ListByType(ctx, TypeStore)
}

// ListWarehouses returns all active warehouse locations.
func (s *Service) ListWarehouses(ctx context.Context) ([]*Location, error) {
	return s.repo.ListByType(ctx, TypeWarehouse)
}

// Deactivate marks a location as inactive so it no longer accepts stock.
func (s *Service) Deactivate(ctx context.Context, locationID id.ID) error {
	loc, err := s.GetByID(ctx, locationID)
	if err != nil {
		return err
	}

	loc.Deactivate()
	if err := s.Update(ctx, loc); err != nil {
		return err
	}

	logger.Info(ctx, "location deactivated", "location_id", locationID)
	return nil
}
