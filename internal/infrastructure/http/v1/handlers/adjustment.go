package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradepost/internal/domain/documents/adjustment"
	"tradepost/internal/infrastructure/http/v1/dto"
)

// AdjustmentHandler exposes the stock adjustment batch endpoints.
type AdjustmentHandler struct {
	*BaseHandler
	service *adjustment.Service
}

// NewAdjustmentHandler creates a new adjustment handler.
func NewAdjustmentHandler(base *BaseHandler, service *adjustment.Service) *AdjustmentHandler {
	return &AdjustmentHandler{
		BaseHandler: base,
		service:     service,
	}
}

// CreateBatch handles POST /stock-adjustments - apply a batch atomically.
func (h *AdjustmentHandler) CreateBatch(c *gin.Context) {
	ctx := c.Request.Context()

	var input adjustment.BatchInput
	if !h.BindJSON(c, &input) {
		return
	}

	created, err := h.service.CreateBatch(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"items": created})
}

// List handles GET /stock-adjustments - adjustment history.
func (h *AdjustmentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := adjustment.ListFilter{
		Reference: c.Query("reference"),
		Search:    c.Query("search"),
		Limit:     h.ParseIntQuery(c, "limit", 50),
		Offset:    h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if filter.ProductID, ok = h.ParseIDQuery(c, "productId"); !ok {
		return
	}
	if filter.LocationID, ok = h.ParseIDQuery(c, "locationId"); !ok {
		return
	}
	if userID := c.Query("userId"); userID != "" {
		filter.UserID = &userID
	}
	if filter.FromDate, ok = h.ParseTimeQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseTimeQuery(c, "to"); !ok {
		return
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get handles GET /stock-adjustments/:id.
func (h *AdjustmentHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	adjID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	adj, err := h.service.GetByID(ctx, adjID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, adj)
}

// Update handles PUT /stock-adjustments/:id - descriptive fields only.
func (h *AdjustmentHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	adjID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	adj, err := h.service.Update(ctx, adjID, req.Reason, req.ReferenceNumber)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, adj)
}

// Delete handles DELETE /stock-adjustments/:id. Always refused: the
// adjustment log is append-only audit history.
func (h *AdjustmentHandler) Delete(c *gin.Context) {
	adjID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	h.Error(c, h.service.Delete(c.Request.Context(), adjID))
}
