// Package location provides the Location catalog.
// Locations are the physical places stock is held at: stores and warehouses.
package location

import (
	"context"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/entity"
)

// LocationType defines the kind of location.
type LocationType string

const (
	TypeStore     LocationType = "store"
	TypeWarehouse LocationType = "warehouse"
)

// Location represents a physical place stock is tracked at.
type Location struct {
	entity.Catalog

	// Type defines the location category
	Type LocationType `db:"type" json:"type"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewLocation creates a new Location with required fields.
func NewLocation(code, name string, locType LocationType) *Location {
	return &Location{
		Catalog: entity.NewCatalog(code, name),
		Type:    locType,
	}
}

// Validate implements entity.Validatable interface.
func (l *Location) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := l.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidLocationType(l.Type) {
		return apperror.NewValidation("invalid location type").
			WithDetail("field", "type").
			WithDetail("value", string(l.Type))
	}

	return nil
}

// CanHoldStock returns true if the location accepts stock movements.
func (l *Location) CanHoldStock() bool {
	return l.IsActive && !l.DeletionMark
}

// --- Validation Helpers ---

func isValidLocationType(t LocationType) bool {
	switch t {
	case TypeStore, TypeWarehouse:
		return true
	}
	return false
}
