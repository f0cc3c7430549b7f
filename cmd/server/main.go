// Package main is the entry point for the Tradepost API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

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
	v1 "tradepost/internal/infrastructure/http/v1"
	"tradepost/internal/infrastructure/mail"
	"tradepost/internal/infrastructure/numerator"
	"tradepost/internal/infrastructure/storage/postgres"
	"tradepost/internal/infrastructure/storage/postgres/auth_repo"
	"tradepost/internal/infrastructure/storage/postgres/catalog_repo"
	"tradepost/internal/infrastructure/storage/postgres/document_repo"
	"tradepost/internal/infrastructure/storage/postgres/register_repo"
	"tradepost/internal/infrastructure/ws"
	"tradepost/pkg/logger"
)

func main() {
	// Pick up a local .env in development; a missing file is fine.
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting tradepost server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if n := getEnvInt("DB_MAX_CONNS", 0); n > 0 {
		poolCfg.MaxConns = int32(n)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	gen := numerator.New(pool)

	// --- Auth ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	userRepo := auth_repo.NewUserRepo(txManager)
	tokenRepo := auth_repo.NewTokenRepo(txManager)
	authService := auth.NewService(userRepo, tokenRepo, txManager, jwtService, auth.DefaultServiceConfig())

	// --- Catalogs ---
	products := product.NewService(catalog_repo.NewProductRepo(txManager), txManager, gen)
	locations := location.NewService(catalog_repo.NewLocationRepo(txManager), txManager, gen)
	suppliers := supplier.NewService(catalog_repo.NewSupplierRepo(txManager), txManager, gen)
	categories := category.NewService(catalog_repo.NewCategoryRepo(txManager), txManager, gen)
	brands := brand.NewService(catalog_repo.NewBrandRepo(txManager), txManager, gen)

	// Definition changes append to sys_audit.
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}
	postgres.RegisterCatalogAudit(products.CatalogService, auditService, "product")
	postgres.RegisterCatalogAudit(locations.CatalogService, auditService, "location")
	postgres.RegisterCatalogAudit(suppliers.CatalogService, auditService, "supplier")
	postgres.RegisterCatalogAudit(categories.CatalogService, auditService, "category")
	postgres.RegisterCatalogAudit(brands.CatalogService, auditService, "brand")

	// --- Live events ---
	hub := ws.NewHub()
	go hub.Run(ctx)
	broadcaster := ws.NewBroadcaster(hub)

	// --- Low-stock notifications ---
	notifier := inventory.MultiNotifier{broadcaster}

	mailCfg := mail.Config{
		Host:       getEnv("SMTP_HOST", ""),
		Port:       getEnvInt("SMTP_PORT", 587),
		Username:   getEnv("SMTP_USERNAME", ""),
		Password:   getEnv("SMTP_PASSWORD", ""),
		From:       getEnv("SMTP_FROM", "alerts@tradepost.local"),
		Recipients: splitList(getEnv("SMTP_ALERT_RECIPIENTS", "")),
	}
	if mailCfg.Enabled() {
		notifier = append(notifier, mail.NewLowStockMailer(mailCfg, products, locations))
		log.Infow("low-stock email alerts enabled", "recipients", len(mailCfg.Recipients))
	}

	// --- Stock ledger ---
	publisher := postgres.NewOutboxPublisher(txManager)
	records := inventory.NewService(register_repo.NewInventoryRepo(txManager), txManager, publisher, notifier)

	adjustments := adjustment.NewService(
		document_repo.NewAdjustmentRepo(txManager), records, gen, txManager, publisher)
	transfers := transfer.NewService(
		document_repo.NewTransferRepo(txManager), records, products, locations, txManager, publisher)
	purchases := purchase.NewService(
		document_repo.NewPurchaseRepo(txManager), records, suppliers, products, locations, gen, txManager, publisher)
	sales := sale.NewService(
		document_repo.NewSaleRepo(txManager), document_repo.NewIncomeRepo(txManager),
		records, products, locations, gen, txManager, publisher)

	// --- Outbox relay ---
	relay := postgres.NewOutboxRelay(pool.Unwrap(), getEnvInt("OUTBOX_BATCH_SIZE", 100), broadcaster)
	go runOutboxRelay(ctx, relay, getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second), log)

	// --- Refresh token cleanup ---
	go runTokenCleanup(ctx, tokenRepo, log)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		JWTValidator:   jwtService,
		AllowedOrigins: splitList(getEnv("CLIENT_ORIGIN", "")),
		AuthService:    authService,
		Products:       products,
		Locations:      locations,
		Suppliers:      suppliers,
		Categories:     categories,
		Brands:         brands,
		Inventory:      records,
		Adjustments:    adjustments,
		Transfers:      transfers,
		Purchases:      purchases,
		Sales:          sales,
		Hub:            hub,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	cancel()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// runOutboxRelay polls the outbox and fans committed events out to
// WebSocket subscribers. Messages that exhaust their retries are swept
// to the dead-letter table once an hour.
func runOutboxRelay(ctx context.Context, relay *postgres.OutboxRelay, interval time.Duration, log *logger.Logger) {
	poll := time.NewTicker(interval)
	defer poll.Stop()
	dlq := time.NewTicker(time.Hour)
	defer dlq.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			if n, err := relay.ProcessBatch(ctx); err != nil {
				log.Warnw("outbox batch failed", "error", err)
			} else if n > 0 {
				log.Debugw("outbox batch delivered", "count", n)
			}
		case <-dlq.C:
			if n, err := relay.MoveToDLQ(ctx); err != nil {
				log.Warnw("outbox dead-letter sweep failed", "error", err)
			} else if n > 0 {
				log.Infow("outbox messages dead-lettered", "count", n)
			}
		}
	}
}

// runTokenCleanup removes expired refresh tokens once an hour.
func runTokenCleanup(ctx context.Context, tokens *auth_repo.TokenRepo, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := tokens.CleanupExpiredTokens(ctx); err != nil {
				log.Warnw("token cleanup failed", "error", err)
			} else if n > 0 {
				log.Infow("expired tokens removed", "count", n)
			}
		}
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
