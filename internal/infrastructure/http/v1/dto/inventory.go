package dto

// --- Request DTOs ---

// CreateRecordRequest introduces a product at a location.
type CreateRecordRequest struct {
	ProductID  string `json:"productId" binding:"required,uuid"`
	LocationID string `json:"locationId" binding:"required,uuid"`
	Quantity   int    `json:"quantity"`
	MinStock   int    `json:"minStock"`
	NotifyAt   int    `json:"notifyAt"`
}

// AdjustRecordRequest applies a single typed adjustment to a record.
type AdjustRecordRequest struct {
	AdjustmentType string `json:"adjustmentType" binding:"required"`
	Quantity       int    `json:"quantity"`
	SignedQuantity int    `json:"signedQuantity"`
	Reason         string `json:"reason"`
}

// SetThresholdsRequest updates alerting thresholds on a record.
type SetThresholdsRequest struct {
	MinStock int `json:"minStock"`
	NotifyAt int `json:"notifyAt"`
}
