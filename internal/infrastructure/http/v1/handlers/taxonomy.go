package handlers

import (
	"tradepost/internal/domain/catalogs/brand"
	"tradepost/internal/domain/catalogs/category"
	"tradepost/internal/infrastructure/http/v1/dto"
)

// CategoryHTTPHandler exposes the category catalog over HTTP.
type CategoryHTTPHandler = CatalogHandler[
	*category.Category,
	dto.CreateCategoryRequest,
	dto.UpdateCategoryRequest,
]

// NewCategoryHandler wires the generic catalog handler for categories.
func NewCategoryHandler(
	base *BaseHandler,
	service *category.Service,
) *CategoryHTTPHandler {

	config := CatalogHandlerConfig[
		*category.Category,
		dto.CreateCategoryRequest,
		dto.UpdateCategoryRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "category",

		MapCreateDTO: func(req dto.CreateCategoryRequest) *category.Category {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateCategoryRequest, existing *category.Category) *category.Category {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(entity *category.Category) any {
			return dto.FromCategory(entity)
		},
	}

	return NewCatalogHandler(base, config)
}

// BrandHTTPHandler exposes the brand catalog over HTTP.
type BrandHTTPHandler = CatalogHandler[
	*brand.Brand,
	dto.CreateBrandRequest,
	dto.UpdateBrandRequest,
]

// NewBrandHandler wires the generic catalog handler for brands.
func NewBrandHandler(
	base *BaseHandler,
	service *brand.Service,
) *BrandHTTPHandler {

	config := CatalogHandlerConfig[
		*brand.Brand,
		dto.CreateBrandRequest,
		dto.UpdateBrandRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "brand",

		MapCreateDTO: func(req dto.CreateBrandRequest) *brand.Brand {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateBrandRequest, existing *brand.Brand) *brand.Brand {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(entity *brand.Brand) any {
			return dto.FromBrand(entity)
		},
	}

	return NewCatalogHandler(base, config)
}
