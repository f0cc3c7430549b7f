package dto

import (
	"tradepost/internal/domain/catalogs/supplier"
)

// --- Request DTOs ---

// CreateSupplierRequest is the request body for creating a supplier.
type CreateSupplierRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	ContactName *string `json:"contactName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	TaxNumber   *string `json:"taxNumber"`
	Notes       *string `json:"notes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateSupplierRequest) ToEntity() *supplier.Supplier {
	s := supplier.NewSupplier(r.Code, r.Name)
	s.ContactName = r.ContactName
	s.Email = r.Email
	s.Phone = r.Phone
	s.Address = r.Address
	s.TaxNumber = r.TaxNumber
	s.Notes = r.Notes
	return s
}

// UpdateSupplierRequest is the request body for updating a supplier.
type UpdateSupplierRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	ContactName *string `json:"contactName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	TaxNumber   *string `json:"taxNumber,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	IsActive    bool    `json:"isActive"`
	Version     int     `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateSupplierRequest) ApplyTo(s *supplier.Supplier) {
	s.Code = r.Code
	s.Name = r.Name
	s.ContactName = r.ContactName
	s.Email = r.Email
	s.Phone = r.Phone
	s.Address = r.Address
	s.TaxNumber = r.TaxNumber
	s.Notes = r.Notes
	s.IsActive = r.IsActive
	s.Version = r.Version
}

// --- Response DTOs ---

// SupplierResponse is the response body for a supplier.
type SupplierResponse struct {
	CatalogResponse
	ContactName *string `json:"contactName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	TaxNumber   *string `json:"taxNumber,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// FromSupplier creates response DTO from domain entity.
func FromSupplier(s *supplier.Supplier) *SupplierResponse {
	return &SupplierResponse{
		CatalogResponse: FromCatalog(s.Catalog),
		ContactName:     s.ContactName,
		Email:           s.Email,
		Phone:           s.Phone,
		Address:         s.Address,
		TaxNumber:       s.TaxNumber,
		Notes:           s.Notes,
	}
}
