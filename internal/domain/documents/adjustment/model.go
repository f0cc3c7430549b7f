// Package adjustment provides the StockAdjustment document: an immutable
// record of one typed quantity delta against one inventory record.
package adjustment

import (
	"context"
	"time"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
)

// AdjustmentType is the reason category for a stock adjustment.
// The stored values are the human-facing names.
type AdjustmentType string

const (
	TypeAddition      AdjustmentType = "Addition"
	TypeSubtraction   AdjustmentType = "Subtraction"
	TypeDamage        AdjustmentType = "Damage"
	TypeTheft         AdjustmentType = "Theft"
	TypeCorrection    AdjustmentType = "Correction"
	TypeInitialStock  AdjustmentType = "Initial Stock"
	TypeReturn        AdjustmentType = "Return"
	TypeTransferIn    AdjustmentType = "Transfer In"
	TypeTransferOut   AdjustmentType = "Transfer Out"
	TypeCycleCountAdj AdjustmentType = "Cycle Count Adj"
	TypeObsolete      AdjustmentType = "Obsolete"
	TypeOther         AdjustmentType = "Other"
)

// ValidType reports whether t is a known adjustment type.
func ValidType(t AdjustmentType) bool {
	switch t {
	case TypeAddition, TypeSubtraction, TypeDamage, TypeTheft, TypeCorrection,
		TypeInitialStock, TypeReturn, TypeTransferIn, TypeTransferOut,
		TypeCycleCountAdj, TypeObsolete, TypeOther:
		return true
	}
	return false
}

// Signed reports whether t takes the caller-supplied sign instead of an
// implied direction.
func (t AdjustmentType) Signed() bool {
	return t == TypeOther || t == TypeCycleCountAdj
}

// SignedDelta derives the signed quantity change for an adjustment.
// quantity must be positive; signedQuantity is consulted only for types
// with caller-supplied sign and must then be non-zero with magnitude
// equal to quantity.
func SignedDelta(t AdjustmentType, quantity, signedQuantity int) (int, error) {
	if quantity <= 0 {
		return 0, apperror.NewValidation("quantity must be a positive integer").
			WithDetail("field", "quantity").
			WithDetail("value", quantity)
	}

	switch t {
	case TypeAddition, TypeCorrection, TypeInitialStock, TypeTransferIn, TypeReturn:
		return quantity, nil
	case TypeSubtraction, TypeDamage, TypeTheft, TypeTransferOut, TypeObsolete:
		return -quantity, nil
	case TypeOther, TypeCycleCountAdj:
		if signedQuantity == 0 {
			return 0, apperror.NewValidation("signed quantity is required for this adjustment type").
				WithDetail("field", "signedQuantity").
				WithDetail("type", string(t))
		}
		if signedQuantity != quantity && signedQuantity != -quantity {
			return 0, apperror.NewValidation("signed quantity must match quantity magnitude").
				WithDetail("field", "signedQuantity")
		}
		return signedQuantity, nil
	default:
		return 0, apperror.NewValidation("unknown adjustment type").
			WithDetail("field", "adjustmentType").
			WithDetail("value", string(t))
	}
}

// StockAdjustment is one applied delta. Append-only: only Reason and
// ReferenceNumber may change after creation, and deletion is prohibited;
// mistakes are corrected by a new reversing adjustment.
type StockAdjustment struct {
	entity.Document

	RecordID   id.ID `db:"record_id" json:"recordId"`
	ProductID  id.ID `db:"product_id" json:"productId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	Type AdjustmentType `db:"adjustment_type" json:"adjustmentType"`

	// QuantityAdjusted is the unsigned magnitude of the change
	QuantityAdjusted int `db:"quantity_adjusted" json:"quantityAdjusted"`

	// PreviousQuantity / NewQuantity snapshot the transition
	PreviousQuantity int `db:"previous_quantity" json:"previousQuantity"`
	NewQuantity      int `db:"new_quantity" json:"newQuantity"`

	Reason          string `db:"reason" json:"reason,omitempty"`
	ReferenceNumber string `db:"reference_number" json:"referenceNumber,omitempty"`
}

// NewStockAdjustment creates an adjustment document.
func NewStockAdjustment(recordID, productID, locationID id.ID, adjType AdjustmentType) *StockAdjustment {
	return &StockAdjustment{
		Document:   entity.NewDocument(),
		RecordID:   recordID,
		ProductID:  productID,
		LocationID: locationID,
		Type:       adjType,
	}
}

// Delta returns the signed change this adjustment applied.
func (a *StockAdjustment) Delta() int {
	return a.NewQuantity - a.PreviousQuantity
}

// Validate implements entity.Validatable.
func (a *StockAdjustment) Validate(ctx context.Context) error {
	if err := a.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(a.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(a.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if !ValidType(a.Type) {
		return apperror.NewValidation("unknown adjustment type").
			WithDetail("field", "adjustmentType").
			WithDetail("value", string(a.Type))
	}
	if a.QuantityAdjusted <= 0 {
		return apperror.NewValidation("quantity must be a positive integer").
			WithDetail("field", "quantityAdjusted")
	}
	return nil
}

// BatchItem is one requested adjustment within a batch.
type BatchItem struct {
	ProductID id.ID          `json:"productId"`
	Type      AdjustmentType `json:"adjustmentType"`

	// Quantity is the unsigned magnitude, > 0
	Quantity int `json:"quantity"`

	// SignedQuantity carries the direction for types with caller-supplied
	// sign ("Other", "Cycle Count Adj")
	SignedQuantity int `json:"signedQuantity,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// BatchInput is the createBatch request.
type BatchInput struct {
	LocationID      id.ID       `json:"locationId"`
	Items           []BatchItem `json:"adjustments"`
	ReferenceNumber string      `json:"referenceNumber,omitempty"`
}

// ListFilter for adjustment history queries.
type ListFilter struct {
	ProductID  *id.ID
	LocationID *id.ID
	UserID     *string
	FromDate   *time.Time
	ToDate     *time.Time
	Reference  string
	Search     string

	Limit  int
	Offset int
}
