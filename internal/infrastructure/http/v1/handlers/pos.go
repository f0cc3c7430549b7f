package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradepost/internal/domain/documents/sale"
	"tradepost/internal/infrastructure/http/v1/dto"
)

// POSHandler exposes point-of-sale endpoints.
type POSHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewPOSHandler creates a new POS handler.
func NewPOSHandler(base *BaseHandler, service *sale.Service) *POSHandler {
	return &POSHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /pos - commit a sale at the register.
func (h *POSHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var input sale.CreateInput
	if !h.BindJSON(c, &input) {
		return
	}

	s, err := h.service.Create(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, s)
}

// List handles GET /pos.
func (h *POSHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := sale.ListFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if status := c.Query("status"); status != "" {
		s := sale.Status(status)
		filter.Status = &s
	}
	if method := c.Query("paymentMethod"); method != "" {
		m := sale.PaymentMethod(method)
		filter.PaymentMethod = &m
	}

	var ok bool
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

// Get handles GET /pos/:id.
func (h *POSHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	s, err := h.service.GetByID(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

// UpdateStatus handles PATCH /pos/:id/status - settle or void a pending sale.
func (h *POSHandler) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSaleStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.service.UpdateStatus(ctx, saleID, sale.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

// Stats handles GET /pos/stats - aggregates over completed sales.
func (h *POSHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	filter := sale.StatsFilter{}

	var ok bool
	if filter.LocationID, ok = h.ParseIDQuery(c, "locationId"); !ok {
		return
	}
	if filter.FromDate, ok = h.ParseTimeQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseTimeQuery(c, "to"); !ok {
		return
	}

	stats, err := h.service.Stats(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
