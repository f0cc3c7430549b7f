// Package supplier provides the Supplier catalog used by purchase orders.
package supplier

import (
	"context"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/entity"
)

// Supplier represents a vendor goods are purchased from.
type Supplier struct {
	entity.Catalog

	// ContactName is the primary contact person
	ContactName *string `db:"contact_name" json:"contactName,omitempty"`

	// Email for purchase order correspondence
	Email *string `db:"email" json:"email,omitempty"`

	// Phone number
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Address of the supplier
	Address *string `db:"address" json:"address,omitempty"`

	// TaxNumber is the supplier's tax registration number
	TaxNumber *string `db:"tax_number" json:"taxNumber,omitempty"`

	// Notes free-form
	Notes *string `db:"notes" json:"notes,omitempty"`
}

// NewSupplier creates a new Supplier with required fields.
func NewSupplier(code, name string) *Supplier {
	return &Supplier{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}

	if s.Email != nil && *s.Email != "" && !isPlausibleEmail(*s.Email) {
		return apperror.NewValidation("invalid email address").
			WithDetail("field", "email").
			WithDetail("value", *s.Email)
	}

	return nil
}

// isPlausibleEmail does a cheap shape check; real validation happens on send.
func isPlausibleEmail(email string) bool {
	at := -1
	for i, c := range email {
		if c == '@' {
			if at >= 0 {
				return false
			}
			at = i
		}
	}
	return at > 0 && at < len(email)-1
}
