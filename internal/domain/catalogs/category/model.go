// Package category provides the hierarchical product Category catalog.
package category

import (
	"context"

	"tradepost/internal/core/entity"
)

// Category groups products into a tree. ParentID of nil means a root category.
type Category struct {
	entity.Catalog

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewCategory creates a new Category with required fields.
func NewCategory(code, name string) *Category {
	return &Category{
		Catalog: entity.NewCatalog(code, name),
	}
}

// NewChildCategory creates a category under the given parent.
func NewChildCategory(code, name, parentID string) *Category {
	c := NewCategory(code, name)
	c.ParentID = &parentID
	return c
}

// Validate implements entity.Validatable interface.
func (c *Category) Validate(ctx context.Context) error {
	return c.Catalog.Validate(ctx)
}
