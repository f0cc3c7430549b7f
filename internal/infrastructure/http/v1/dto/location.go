package dto

import (
	"tradepost/internal/domain/catalogs/location"
)

// --- Request DTOs ---

// CreateLocationRequest is the request body for creating a location.
type CreateLocationRequest struct {
	Code        string                `json:"code"`
	Name        string                `json:"name" binding:"required"`
	Type        location.LocationType `json:"type" binding:"required"`
	Address     *string               `json:"address"`
	Description *string               `json:"description"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateLocationRequest) ToEntity() *location.Location {
	loc := location.NewLocation(r.Code, r.Name, r.Type)
	loc.Address = r.Address
	loc.Description = r.Description
	return loc
}

// UpdateLocationRequest is the request body for updating a location.
type UpdateLocationRequest struct {
	Code        string                `json:"code"`
	Name        string                `json:"name" binding:"required"`
	Type        location.LocationType `json:"type" binding:"required"`
	Address     *string               `json:"address,omitempty"`
	Description *string               `json:"description,omitempty"`
	IsActive    bool                  `json:"isActive"`
	Version     int                   `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateLocationRequest) ApplyTo(loc *location.Location) {
	loc.Code = r.Code
	loc.Name = r.Name
	loc.Type = r.Type
	loc.Address = r.Address
	loc.Description = r.Description
	loc.IsActive = r.IsActive
	loc.Version = r.Version
}

// --- Response DTOs ---

// LocationResponse is the response body for a location.
type LocationResponse struct {
	CatalogResponse
	Type        location.LocationType `json:"type"`
	Address     *string               `json:"address,omitempty"`
	Description *string               `json:"description,omitempty"`
}

// FromLocation creates response DTO from domain entity.
func FromLocation(loc *location.Location) *LocationResponse {
	return &LocationResponse{
		CatalogResponse: FromCatalog(loc.Catalog),
		Type:            loc.Type,
		Address:         loc.Address,
		Description:     loc.Description,
	}
}
