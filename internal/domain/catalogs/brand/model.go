// Package brand provides the product Brand catalog.
package brand

import (
	"context"

	"tradepost/internal/core/entity"
)

// Brand represents a product manufacturer or trademark.
type Brand struct {
	entity.Catalog

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewBrand creates a new Brand with required fields.
func NewBrand(code, name string) *Brand {
	return &Brand{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (b *Brand) Validate(ctx context.Context) error {
	return b.Catalog.Validate(ctx)
}
