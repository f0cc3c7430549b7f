package category

import (
	"context"
	"time"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/id"
	"tradepost/internal/core/numerator"
	"tradepost/internal/core/tx"
	"tradepost/internal/domain"
)

// Service provides business logic for the category tree.
type Service struct {
	*domain.CatalogService[*Category]

	repo      Repository
	numerator numerator.Generator
}

// NewService creates a category service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Category]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "category",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)
	base.Hooks().On(domain.BeforeUpdate, svc.checkParent)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, cat *Category) error {
	if cat.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CAT"), nil, time.Now())
		if err != nil {
			return err
		}
		cat.Code = code
	}
	return s.checkParent(ctx, cat)
}

// checkParent rejects self-references and moves under a descendant,
// which would otherwise create a cycle in the tree.
func (s *Service) checkParent(ctx context.Context, cat *Category) error {
	if cat.ParentID == nil {
		return nil
	}

	parentID, err := id.Parse(*cat.ParentID)
	if err != nil {
		return apperror.NewValidation("parent category not found").
			WithDetail("field", "parentId").
			WithDetail("value", *cat.ParentID)
	}

	if parentID == cat.ID {
		return apperror.NewValidation("category cannot be its own parent").
			WithDetail("field", "parentId")
	}

	path, err := s.repo.GetPath(ctx, parentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewValidation("parent category not found").
				WithDetail("field", "parentId").
				WithDetail("value", *cat.ParentID)
		}
		return err
	}

	for _, ancestor := range path {
		if ancestor.ID == cat.ID {
			return apperror.NewValidation("category cannot be moved under its own descendant").
				WithDetail("field", "parentId").
				WithDetail("value", *cat.ParentID)
		}
	}

	return nil
}
