package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradepost/internal/domain/documents/purchase"
	"tradepost/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler exposes purchase orders and the receiving pipeline.
type PurchaseHandler struct {
	*BaseHandler
	service *purchase.Service
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(base *BaseHandler, service *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /purchases.
func (h *PurchaseHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var input purchase.CreateInput
	if !h.BindJSON(c, &input) {
		return
	}

	p, err := h.service.Create(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// List handles GET /purchases.
func (h *PurchaseHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := purchase.ListFilter{
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("includeDeleted") == "true",
		Limit:          h.ParseIntQuery(c, "limit", 50),
		Offset:         h.ParseIntQuery(c, "offset", 0),
	}

	if status := c.Query("status"); status != "" {
		s := purchase.Status(status)
		filter.Status = &s
	}
	if payment := c.Query("paymentStatus"); payment != "" {
		p := purchase.PaymentStatus(payment)
		filter.PaymentStatus = &p
	}

	var ok bool
	if filter.SupplierID, ok = h.ParseIDQuery(c, "supplierId"); !ok {
		return
	}
	if filter.WarehouseID, ok = h.ParseIDQuery(c, "warehouseId"); !ok {
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

// Get handles GET /purchases/:id.
func (h *PurchaseHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	purchaseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(ctx, purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Update handles PUT /purchases/:id - replace an unreceived order.
func (h *PurchaseHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	purchaseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var input purchase.CreateInput
	if !h.BindJSON(c, &input) {
		return
	}

	p, err := h.service.Update(ctx, purchaseID, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Receive handles PATCH /purchases/:id/receive - post goods into stock.
func (h *PurchaseHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	purchaseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Receive(ctx, purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// RecordPayment handles POST /purchases/:id/payment.
func (h *PurchaseHandler) RecordPayment(c *gin.Context) {
	ctx := c.Request.Context()

	purchaseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.RecordPayment(ctx, purchaseID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /purchases/:id - soft delete an unreceived order.
func (h *PurchaseHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	purchaseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, purchaseID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
