package dto

// Small request bodies for document state operations. Create payloads bind
// straight to the domain input types, which carry their own json tags.

// CancelTransferRequest carries the cancellation reason.
type CancelTransferRequest struct {
	Reason string `json:"reason"`
}

// RecordPaymentRequest registers a payment against a purchase.
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// UpdateSaleStatusRequest moves a sale to a new status.
type UpdateSaleStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAdjustmentRequest edits the descriptive fields of an adjustment.
// Quantities are immutable once applied.
type UpdateAdjustmentRequest struct {
	Reason          string `json:"reason"`
	ReferenceNumber string `json:"referenceNumber"`
}
