package dto

import (
	"tradepost/internal/core/types"
	"tradepost/internal/domain/catalogs/product"
)

// --- Request DTOs ---

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Code        string   `json:"code"`
	Name        string   `json:"name" binding:"required"`
	SKU         *string  `json:"sku"`
	Barcode     *string  `json:"barcode"`
	CategoryID  *string  `json:"categoryId"`
	BrandID     *string  `json:"brandId"`
	Price       float64  `json:"price"`
	Cost        float64  `json:"cost"`
	Unit        *string  `json:"unit"`
	Description *string  `json:"description"`
	ImageURL    *string  `json:"imageUrl"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Code, r.Name)
	p.SKU = r.SKU
	p.Barcode = r.Barcode
	p.CategoryID = r.CategoryID
	p.BrandID = r.BrandID
	p.Price = types.NewMoney(r.Price)
	p.Cost = types.NewMoney(r.Cost)
	p.Unit = r.Unit
	p.Description = r.Description
	p.ImageURL = r.ImageURL
	return p
}

// UpdateProductRequest is the request body for updating a product.
type UpdateProductRequest struct {
	Code        string   `json:"code"`
	Name        string   `json:"name" binding:"required"`
	SKU         *string  `json:"sku,omitempty"`
	Barcode     *string  `json:"barcode,omitempty"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	BrandID     *string  `json:"brandId,omitempty"`
	Price       float64  `json:"price"`
	Cost        float64  `json:"cost"`
	Unit        *string  `json:"unit,omitempty"`
	Description *string  `json:"description,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	IsActive    bool     `json:"isActive"`
	Version     int      `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	p.Code = r.Code
	p.Name = r.Name
	p.SKU = r.SKU
	p.Barcode = r.Barcode
	p.CategoryID = r.CategoryID
	p.BrandID = r.BrandID
	p.Price = types.NewMoney(r.Price)
	p.Cost = types.NewMoney(r.Cost)
	p.Unit = r.Unit
	p.Description = r.Description
	p.ImageURL = r.ImageURL
	p.IsActive = r.IsActive
	p.Version = r.Version
}

// --- Response DTOs ---

// ProductResponse is the response body for a product.
type ProductResponse struct {
	CatalogResponse
	SKU         *string     `json:"sku,omitempty"`
	Barcode     *string     `json:"barcode,omitempty"`
	CategoryID  *string     `json:"categoryId,omitempty"`
	BrandID     *string     `json:"brandId,omitempty"`
	Price       types.Money `json:"price"`
	Cost        types.Money `json:"cost"`
	Unit        *string     `json:"unit,omitempty"`
	Description *string     `json:"description,omitempty"`
	ImageURL    *string     `json:"imageUrl,omitempty"`
}

// FromProduct creates response DTO from domain entity.
func FromProduct(p *product.Product) *ProductResponse {
	return &ProductResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		SKU:             p.SKU,
		Barcode:         p.Barcode,
		CategoryID:      p.CategoryID,
		BrandID:         p.BrandID,
		Price:           p.Price,
		Cost:            p.Cost,
		Unit:            p.Unit,
		Description:     p.Description,
		ImageURL:        p.ImageURL,
	}
}
