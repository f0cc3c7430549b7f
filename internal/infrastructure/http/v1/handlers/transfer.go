package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradepost/internal/domain/documents/transfer"
	"tradepost/internal/infrastructure/http/v1/dto"
)

// TransferHandler exposes the stock transfer state machine.
type TransferHandler struct {
	*BaseHandler
	service *transfer.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfer.Service) *TransferHandler {
	return &TransferHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /transfers - open a pending transfer.
func (h *TransferHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var input transfer.CreateInput
	if !h.BindJSON(c, &input) {
		return
	}

	t, err := h.service.Create(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

// List handles GET /transfers.
func (h *TransferHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := transfer.ListFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if status := c.Query("status"); status != "" {
		s := transfer.Status(status)
		filter.Status = &s
	}

	var ok bool
	if filter.ProductID, ok = h.ParseIDQuery(c, "productId"); !ok {
		return
	}
	if filter.LocationID, ok = h.ParseIDQuery(c, "locationId"); !ok {
		return
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

// Get handles GET /transfers/:id.
func (h *TransferHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	transferID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.service.GetByID(ctx, transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// Ship handles PATCH /transfers/:id/ship - deduct stock at the source.
func (h *TransferHandler) Ship(c *gin.Context) {
	ctx := c.Request.Context()

	transferID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Ship(ctx, transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// Receive handles PATCH /transfers/:id/receive - add stock at the target.
func (h *TransferHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	transferID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Receive(ctx, transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// Cancel handles PATCH /transfers/:id/cancel. Cancelling an in-transit
// transfer returns the goods to the source.
func (h *TransferHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	transferID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	// Reason is optional, so an empty body is fine.
	var req dto.CancelTransferRequest
	if c.Request.ContentLength > 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}

	t, err := h.service.Cancel(ctx, transferID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}
