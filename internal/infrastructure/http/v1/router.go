// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"tradepost/internal/domain/auth"
	"tradepost/internal/domain/catalogs/brand"
	"tradepost/internal/domain/catalogs/category"
	"tradepost/internal/domain/catalogs/location"
	"tradepost/internal/domain/catalogs/product"
	"tradepost/internal/domain/catalogs/supplier"
	"tradepost/internal/domain/documents/adjustment"
	"tradepost/internal/domain/documents/purchase"
	"tradepost/internal/domain/documents/sale"
	"tradepost/internal/domain/documents/transfer"
	"tradepost/internal/domain/inventory"
	"tradepost/internal/infrastructure/http/v1/handlers"
	"tradepost/internal/infrastructure/http/v1/middleware"
	"tradepost/internal/infrastructure/storage/postgres"
	"tradepost/internal/infrastructure/ws"
	"tradepost/pkg/logger"
)

// RouterConfig holds the assembled services the API exposes.
type RouterConfig struct {
	// Pool is the database connection pool (health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AllowedOrigins for browser clients; empty allows any origin
	AllowedOrigins []string

	// Services
	AuthService     *auth.Service
	Products        *product.Service
	Locations       *location.Service
	Suppliers       *supplier.Service
	Categories      *category.Service
	Brands          *brand.Service
	Inventory       *inventory.Service
	Adjustments     *adjustment.Service
	Transfers       *transfer.Service
	Purchases       *purchase.Service
	Sales           *sale.Service

	// Hub carries live events to WebSocket subscribers
	Hub *ws.Hub
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg)

		// Protected endpoints
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator)) // 1. Validate JWT
		protected.Use(middleware.UserContext())          // 2. Add UserID to context for domain layer

		registerCatalogRoutes(protected, cfg)
		registerStockRoutes(protected, cfg)
		registerEventRoutes(protected, cfg)
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	// Public auth endpoints (no JWT required)
	publicAuth := rg.Group("/auth")

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
	protectedAuth.Use(middleware.UserContext())

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerCatalogRoutes registers catalog endpoints. Reads are open to all
// authenticated users; mutations need manager or admin.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	writeRoles := []string{auth.RoleAdmin, auth.RoleManager}

	if cfg.Products != nil {
		handler := handlers.NewProductHandler(baseHandler, cfg.Products)
		RegisterCatalogRoutes(rg.Group("/products"), handler, writeRoles...)
	}
	if cfg.Locations != nil {
		handler := handlers.NewLocationHandler(baseHandler, cfg.Locations)
		RegisterCatalogRoutes(rg.Group("/locations"), handler, writeRoles...)
	}
	if cfg.Suppliers != nil {
		handler := handlers.NewSupplierHandler(baseHandler, cfg.Suppliers)
		RegisterCatalogRoutes(rg.Group("/suppliers"), handler, writeRoles...)
	}
	if cfg.Categories != nil {
		handler := handlers.NewCategoryHandler(baseHandler, cfg.Categories)
		RegisterCatalogRoutes(rg.Group("/categories"), handler, writeRoles...)
	}
	if cfg.Brands != nil {
		handler := handlers.NewBrandHandler(baseHandler, cfg.Brands)
		RegisterCatalogRoutes(rg.Group("/brands"), handler, writeRoles...)
	}
}

// registerStockRoutes registers the stock ledger and document endpoints.
func registerStockRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	manage := middleware.RequireRole(auth.RoleAdmin, auth.RoleManager)

	// Inventory records
	if cfg.Inventory != nil && cfg.Adjustments != nil {
		handler := handlers.NewInventoryHandler(baseHandler, cfg.Inventory, cfg.Adjustments)
		group := rg.Group("/inventory")
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.GET("/:id/history", handler.History)
		group.POST("", manage, handler.Create)
		group.PATCH("/:id/adjust", manage, handler.Adjust)
		group.PUT("/:id/thresholds", manage, handler.SetThresholds)
	}

	// Stock adjustments
	if cfg.Adjustments != nil {
		handler := handlers.NewAdjustmentHandler(baseHandler, cfg.Adjustments)
		group := rg.Group("/stock-adjustments")
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("", manage, handler.CreateBatch)
		group.PUT("/:id", manage, handler.Update)
		group.DELETE("/:id", manage, handler.Delete)
	}

	// Transfers
	if cfg.Transfers != nil {
		handler := handlers.NewTransferHandler(baseHandler, cfg.Transfers)
		group := rg.Group("/transfers")
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("", manage, handler.Create)
		group.PATCH("/:id/ship", manage, handler.Ship)
		group.PATCH("/:id/receive", manage, handler.Receive)
		group.PATCH("/:id/cancel", manage, handler.Cancel)
	}

	// Purchases
	if cfg.Purchases != nil {
		handler := handlers.NewPurchaseHandler(baseHandler, cfg.Purchases)
		group := rg.Group("/purchases")
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("", manage, handler.Create)
		group.PUT("/:id", manage, handler.Update)
		group.POST("/:id/receive", manage, handler.Receive)
		// PATCH alias keeps the verb symmetric with transfer transitions.
		group.PATCH("/:id/receive", manage, handler.Receive)
		group.POST("/:id/payment", manage, handler.RecordPayment)
		group.DELETE("/:id", manage, handler.Delete)
	}

	// Point of sale: every authenticated user can sell at their locations.
	if cfg.Sales != nil {
		handler := handlers.NewPOSHandler(baseHandler, cfg.Sales)
		group := rg.Group("/pos")
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/stats", handler.Stats)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id/status", handler.UpdateStatus)
	}
}

// registerEventRoutes registers the WebSocket event channel.
func registerEventRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Hub == nil {
		return
	}
	rg.GET("/ws", ws.Handler(cfg.Hub))
}
