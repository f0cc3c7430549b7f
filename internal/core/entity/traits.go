package entity

import (
	"context"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/id"
)

// LocationAware is a trait for documents bound to a single location.
// Used for composition in models like Sale and adjustment batches.
type LocationAware struct {
	// LocationID is the location the document operates against
	LocationID id.ID `db:"location_id" json:"locationId"`
}

// ValidateLocation ensures a location is set.
func (l *LocationAware) ValidateLocation(ctx context.Context) error {
	if id.IsNil(l.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	return nil
}

// GetLocationID returns the location ID (useful for interfaces).
func (l *LocationAware) GetLocationID() id.ID {
	return l.LocationID
}

// ILocationAware is an interface for any document that has a location.
type ILocationAware interface {
	GetLocationID() id.ID
	ValidateLocation(ctx context.Context) error
}
