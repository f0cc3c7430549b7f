// Package product provides the Product catalog.
// A product is a definition only: identity, pricing, classification.
// It never carries a stock quantity; stock lives in inventory records.
package product

import (
	"context"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/types"
)

// Product represents a sellable or stockable item definition.
type Product struct {
	entity.Catalog

	// SKU is the stock keeping unit (unique when set)
	SKU *string `db:"sku" json:"sku,omitempty"`

	// Barcode is the item barcode (unique when set)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// CategoryID is the reference to category
	CategoryID *string `db:"category_id" json:"categoryId,omitempty"`

	// BrandID is the reference to brand
	BrandID *string `db:"brand_id" json:"brandId,omitempty"`

	// Price is the base selling price
	Price types.Money `db:"price" json:"price"`

	// Cost is the default purchase cost
	Cost types.Money `db:"cost" json:"cost"`

	// Unit is the unit of measure label (pcs, kg, box)
	Unit *string `db:"unit" json:"unit,omitempty"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// ImageURL is the item image URL
	ImageURL *string `db:"image_url" json:"imageUrl,omitempty"`

	// CreatedBy references the user who created the product
	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string) *Product {
	return &Product{
		Catalog: entity.NewCatalog(code, name),
		Price:   types.Zero(),
		Cost:    types.Zero(),
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price")
	}

	if p.Cost.IsNegative() {
		return apperror.NewValidation("cost cannot be negative").
			WithDetail("field", "cost")
	}

	return nil
}

// SKUValue returns the SKU or empty string.
func (p *Product) SKUValue() string {
	if p.SKU == nil {
		return ""
	}
	return *p.SKU
}
