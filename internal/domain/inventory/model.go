// Package inventory owns the (product, location) stock mapping and its
// append-only audit log. It is the sole mutator of stock counts: every other
// stock-moving operation (adjustments, transfers, purchasing, sales) goes
// through ApplyDelta.
package inventory

import (
	"context"
	"time"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/id"
)

// Record is the stock aggregate for one product at one location.
// Exactly one record exists per (product, location); the pair is unique
// at the storage layer.
type Record struct {
	ID id.ID `db:"id" json:"id"`

	ProductID  id.ID `db:"product_id" json:"productId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	// Quantity is the current stock count. Never negative.
	Quantity int `db:"quantity" json:"quantity"`

	// MinStock is the desired floor used by reporting
	MinStock int `db:"min_stock" json:"minStock"`

	// NotifyAt triggers low-stock alerts when quantity falls to or below it.
	// Defaults to MinStock when unset.
	NotifyAt int `db:"notify_at" json:"notifyAt"`

	// LastNotified throttles repeat low-stock alerts
	LastNotified *time.Time `db:"last_notified" json:"lastNotified,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Version   int       `db:"version" json:"version"`
}

// NewRecord creates an empty record for (product, location).
// Stock is introduced through ApplyDelta, never by setting Quantity directly.
func NewRecord(productID, locationID id.ID, actorID string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:         id.New(),
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   0,
		CreatedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
}

// Validate checks structural validity.
func (r *Record) Validate(ctx context.Context) error {
	if id.IsNil(r.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if r.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative").WithDetail("field", "quantity")
	}
	if r.MinStock < 0 {
		return apperror.NewValidation("minStock cannot be negative").WithDetail("field", "minStock")
	}
	return nil
}

// EffectiveNotifyAt returns the alert threshold, falling back to MinStock.
func (r *Record) EffectiveNotifyAt() int {
	if r.NotifyAt > 0 {
		return r.NotifyAt
	}
	return r.MinStock
}

// IsLowStock reports whether the record is at or below its alert threshold.
func (r *Record) IsLowStock() bool {
	threshold := r.EffectiveNotifyAt()
	return threshold > 0 && r.Quantity <= threshold
}
