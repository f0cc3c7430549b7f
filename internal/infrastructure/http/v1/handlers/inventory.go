package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/id"
	"tradepost/internal/domain/documents/adjustment"
	"tradepost/internal/domain/inventory"
	"tradepost/internal/infrastructure/http/v1/dto"
)

// InventoryHandler exposes inventory records and their ledger.
type InventoryHandler struct {
	*BaseHandler
	records     *inventory.Service
	adjustments *adjustment.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, records *inventory.Service, adjustments *adjustment.Service) *InventoryHandler {
	return &InventoryHandler{
		BaseHandler: base,
		records:     records,
		adjustments: adjustments,
	}
}

// Create handles POST /inventory - introduce a product at a location.
func (h *InventoryHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}
	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId format"))
		return
	}

	record, err := h.records.Create(ctx, inventory.CreateInput{
		ProductID:       productID,
		LocationID:      locationID,
		InitialQuantity: req.Quantity,
		MinStock:        req.MinStock,
		NotifyAt:        req.NotifyAt,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// List handles GET /inventory - list records with filters.
func (h *InventoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := inventory.Filter{
		Limit:        h.ParseIntQuery(c, "limit", 50),
		Offset:       h.ParseIntQuery(c, "offset", 0),
		LowStockOnly: c.Query("lowStock") == "true",
	}

	if productStr := c.Query("productId"); productStr != "" {
		productID, err := id.Parse(productStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid productId format"))
			return
		}
		filter.ProductID = &productID
	}
	if locationStr := c.Query("locationId"); locationStr != "" {
		locationID, err := id.Parse(locationStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid locationId format"))
			return
		}
		filter.LocationID = &locationID
	}

	result, err := h.records.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get handles GET /inventory/:id - single record.
func (h *InventoryHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := h.records.GetByID(ctx, recordID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Adjust handles PATCH /inventory/:id/adjust - one typed adjustment
// against a known record.
func (h *InventoryHandler) Adjust(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AdjustRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	adj, err := h.adjustments.AdjustSingle(ctx, recordID,
		adjustment.AdjustmentType(req.AdjustmentType), req.Quantity, req.SignedQuantity, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, adj)
}

// SetThresholds handles PUT /inventory/:id/thresholds.
func (h *InventoryHandler) SetThresholds(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SetThresholdsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record, err := h.records.SetThresholds(ctx, recordID, req.MinStock, req.NotifyAt)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// History handles GET /inventory/:id/history - the record's ledger entries.
func (h *InventoryHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 100)
	offset := h.ParseIntQuery(c, "offset", 0)

	entries, err := h.records.History(ctx, recordID, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}
