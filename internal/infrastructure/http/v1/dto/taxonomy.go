package dto

import (
	"tradepost/internal/domain/catalogs/brand"
	"tradepost/internal/domain/catalogs/category"
)

// Brand and category share the same shape: a named catalog entry with an
// optional description, hierarchical for categories.

// --- Category ---

// CreateCategoryRequest is the request body for creating a category.
type CreateCategoryRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	ParentID    *string `json:"parentId"`
	Description *string `json:"description"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateCategoryRequest) ToEntity() *category.Category {
	cat := category.NewCategory(r.Code, r.Name)
	cat.ParentID = r.ParentID
	cat.Description = r.Description
	return cat
}

// UpdateCategoryRequest is the request body for updating a category.
type UpdateCategoryRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	ParentID    *string `json:"parentId,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    bool    `json:"isActive"`
	Version     int     `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateCategoryRequest) ApplyTo(cat *category.Category) {
	cat.Code = r.Code
	cat.Name = r.Name
	cat.ParentID = r.ParentID
	cat.Description = r.Description
	cat.IsActive = r.IsActive
	cat.Version = r.Version
}

// CategoryResponse is the response body for a category.
type CategoryResponse struct {
	CatalogResponse
	Description *string `json:"description,omitempty"`
}

// FromCategory creates response DTO from domain entity.
func FromCategory(cat *category.Category) *CategoryResponse {
	return &CategoryResponse{
		CatalogResponse: FromCatalog(cat.Catalog),
		Description:     cat.Description,
	}
}

// --- Brand ---

// CreateBrandRequest is the request body for creating a brand.
type CreateBrandRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateBrandRequest) ToEntity() *brand.Brand {
	b := brand.NewBrand(r.Code, r.Name)
	b.Description = r.Description
	return b
}

// UpdateBrandRequest is the request body for updating a brand.
type UpdateBrandRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	IsActive    bool    `json:"isActive"`
	Version     int     `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateBrandRequest) ApplyTo(b *brand.Brand) {
	b.Code = r.Code
	b.Name = r.Name
	b.Description = r.Description
	b.IsActive = r.IsActive
	b.Version = r.Version
}

// BrandResponse is the response body for a brand.
type BrandResponse struct {
	CatalogResponse
	Description *string `json:"description,omitempty"`
}

// FromBrand creates response DTO from domain entity.
func FromBrand(b *brand.Brand) *BrandResponse {
	return &BrandResponse{
		CatalogResponse: FromCatalog(b.Catalog),
		Description:     b.Description,
	}
}
