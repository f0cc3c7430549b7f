package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tradepost/internal/infrastructure/http/v1/middleware"
)

func newParamRouter(h *BaseHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/things/:id", func(c *gin.Context) {
		if _, ok := h.ParseIDParam(c, "id"); !ok {
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestParseIDParam_MalformedIDIsNotFound(t *testing.T) {
	router := newParamRouter(NewBaseHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/things/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	// A malformed identifier addresses nothing, same as an unknown one.
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseIDParam_WellFormedIDPasses(t *testing.T) {
	router := newParamRouter(NewBaseHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/things/0191b8a0-7a3e-7c30-a4a9-2a6fddc0a1b2", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
