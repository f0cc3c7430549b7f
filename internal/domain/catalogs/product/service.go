package product

import (
	"context"
	"fmt"
	"time"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/id"
	"tradepost/internal/core/numerator"
	"tradepost/internal/core/tx"
	"tradepost/internal/domain"
)

// Service provides business logic for the Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Product service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)
	base.Hooks().On(domain.BeforeUpdate, svc.checkUnique)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, item *Product) error {
	// Generate code if not provided
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PRD"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}

	return s.checkUnique(ctx, item)
}

// checkUnique verifies SKU and barcode uniqueness.
func (s *Service) checkUnique(ctx context.Context, item *Product) error {
	if item.SKU != nil && *item.SKU != "" {
		if exists, _ := s.skuTaken(ctx, *item.SKU, item.ID); exists {
			return apperror.NewDuplicate("product", "sku", *item.SKU)
		}
	}

	if item.Barcode != nil && *item.Barcode != "" {
		if exists, _ := s.barcodeTaken(ctx, *item.Barcode, item.ID); exists {
			return apperror.NewDuplicate("product", "barcode", *item.Barcode)
		}
	}

	return nil
}

// --- Entity-specific methods ---

// FindBySKU retrieves a product by SKU.
func (s *Service) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	return s.repo.FindBySKU(ctx, sku)
}

// FindByBarcode retrieves a product by barcode.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	return s.repo.FindByBarcode(ctx, barcode)
}

// Deactivate soft-deactivates a product. Products referenced by ledger
// history are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, productID id.ID) error {
	item, err := s.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	item.Deactivate()
	return s.Update(ctx, item)
}

func (s *Service) skuTaken(ctx context.Context, sku string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return false, nil
	}
	return existing.ID != excludeID, nil
}

func (s *Service) barcodeTaken(ctx context.Context, barcode string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return false, nil
	}
	return existing.ID != excludeID, nil
}
