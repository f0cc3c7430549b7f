// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"tradepost/internal/core/id"
	"tradepost/internal/domain/auth"
	"tradepost/internal/infrastructure/storage/postgres"
	"tradepost/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	poolCfg.AppName = "tradepost-seed"
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedAdminUser(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@tradepost.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	var existingID id.ID
	err := pool.QueryRow(ctx,
		`SELECT id FROM sys_users WHERE email = $1 AND deleted_at IS NULL`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	_, err = pool.Exec(ctx, `
		INSERT INTO sys_users (
			id, email, password_hash, first_name, last_name,
			role, is_active, version
		)
		VALUES ($1, $2, $3, 'System', 'Admin', $4, true, 1)
	`, userID, adminEmail, string(passwordHash), auth.RoleAdmin)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created",
		"email", adminEmail,
		"user_id", userID,
	)

	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo data...")

	// 1. Locations
	locations := []struct {
		name    string
		lType   string
		address string
	}{
		{"Main Warehouse", "warehouse", "1 Distribution Way"},
		{"Downtown Store", "store", "5 Market Street"},
		{"Airport Kiosk", "store", "Terminal 2, Gate B"},
	}

	locationIDs := make([]id.ID, 0, len(locations))
	for i, l := range locations {
		locID := id.New()
		code := fmt.Sprintf("LOC-%03d", i+1)
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_locations (id, code, name, type, address, is_active, version, deletion_mark, attributes)
			VALUES ($1, $2, $3, $4, $5, true, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, locID, code, l.name, l.lType, l.address)
		if err != nil {
			log.Warnw("failed to seed location", "name", l.name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx, `
				SELECT id FROM cat_locations WHERE code = $1 AND deletion_mark = FALSE
			`, code).Scan(&locID); err != nil {
				log.Warnw("failed to fetch existing location", "code", code, "error", err)
				continue
			}
		}
		locationIDs = append(locationIDs, locID)
	}

	// 2. Categories
	categories := []string{"Stationery", "Electronics", "Beverages"}
	categoryIDs := make(map[string]id.ID, len(categories))
	for i, name := range categories {
		catID := id.New()
		code := fmt.Sprintf("CAT-%03d", i+1)
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_categories (id, code, name, is_active, version, deletion_mark, attributes)
			VALUES ($1, $2, $3, true, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, catID, code, name)
		if err != nil {
			log.Warnw("failed to seed category", "name", name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx, `
				SELECT id FROM cat_categories WHERE code = $1 AND deletion_mark = FALSE
			`, code).Scan(&catID); err != nil {
				log.Warnw("failed to fetch existing category", "code", code, "error", err)
				continue
			}
		}
		categoryIDs[name] = catID
	}

	// 3. Brands
	brands := []string{"Generic", "Acme"}
	brandIDs := make(map[string]id.ID, len(brands))
	for i, name := range brands {
		brID := id.New()
		code := fmt.Sprintf("BR-%03d", i+1)
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_brands (id, code, name, is_active, version, deletion_mark, attributes)
			VALUES ($1, $2, $3, true, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, brID, code, name)
		if err != nil {
			log.Warnw("failed to seed brand", "name", name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx, `
				SELECT id FROM cat_brands WHERE code = $1 AND deletion_mark = FALSE
			`, code).Scan(&brID); err != nil {
				log.Warnw("failed to fetch existing brand", "code", code, "error", err)
				continue
			}
		}
		brandIDs[name] = brID
	}

	// 4. Suppliers
	suppliers := []struct {
		name    string
		contact string
		email   string
	}{
		{"Paper Supply Co", "Dana Reeves", "orders@papersupply.example"},
		{"Electro Wholesale", "Sam Ortiz", "sales@electrowholesale.example"},
	}

	for i, s := range suppliers {
		supID := id.New()
		code := fmt.Sprintf("SUP-%03d", i+1)
		_, err := pool.Exec(ctx, `
			INSERT INTO cat_suppliers (id, code, name, contact_name, email, is_active, version, deletion_mark, attributes)
			VALUES ($1, $2, $3, $4, $5, true, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, supID, code, s.name, s.contact, s.email)
		if err != nil {
			log.Warnw("failed to seed supplier", "name", s.name, "error", err)
		}
	}

	// 5. Products
	products := []struct {
		name     string
		sku      string
		barcode  string
		category string
		brand    string
		price    string
		cost     string
		unit     string
	}{
		{"A4 Copy Paper (500 sheets)", "PAP-A4", "4600000000001", "Stationery", "Generic", "6.99", "4.10", "pack"},
		{"Ballpoint Pen Blue", "PEN-BLU", "4600000000002", "Stationery", "Generic", "1.49", "0.55", "pcs"},
		{"Desktop Stapler", "STP-001", "4600000000003", "Stationery", "Acme", "12.50", "7.80", "pcs"},
		{"USB-C Cable 1m", "USB-C1M", "4600000000004", "Electronics", "Acme", "9.99", "3.20", "pcs"},
		{"Sparkling Water 0.5L", "WAT-05L", "4600000000005", "Beverages", "Generic", "1.99", "0.85", "pcs"},
	}

	productIDs := make([]id.ID, 0, len(products))
	for i, p := range products {
		prodID := id.New()
		code := fmt.Sprintf("PRD-%05d", i+1)

		var categoryID, brandID any
		if cid, ok := categoryIDs[p.category]; ok {
			categoryID = cid.String()
		}
		if bid, ok := brandIDs[p.brand]; ok {
			brandID = bid.String()
		}

		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_products (
				id, code, name, sku, barcode, category_id, brand_id,
				price, cost, unit, is_active, version, deletion_mark, attributes
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, prodID, code, p.name, p.sku, p.barcode, categoryID, brandID, p.price, p.cost, p.unit)
		if err != nil {
			log.Warnw("failed to seed product", "name", p.name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx, `
				SELECT id FROM cat_products WHERE code = $1 AND deletion_mark = FALSE
			`, code).Scan(&prodID); err != nil {
				log.Warnw("failed to fetch existing product", "code", code, "error", err)
				continue
			}
		}
		productIDs = append(productIDs, prodID)
	}

	// 6. Inventory records: every product stocked at the first location.
	// Each record gets its opening ledger entry so the entry log stays
	// consistent with the record quantity.
	if len(locationIDs) > 0 {
		for i, prodID := range productIDs {
			recID := id.New()
			quantity := 50 + i*25
			tag, err := pool.Exec(ctx, `
				INSERT INTO inv_records (
					id, product_id, location_id, quantity, min_stock, notify_at,
					created_by, version
				)
				VALUES ($1, $2, $3, $4, 10, 0, 'seed', 1)
				ON CONFLICT (product_id, location_id) DO NOTHING
			`, recID, prodID, locationIDs[0], quantity)
			if err != nil {
				log.Warnw("failed to seed inventory record", "product_id", prodID, "error", err)
				continue
			}
			if tag.RowsAffected() == 0 {
				continue
			}
			_, err = pool.Exec(ctx, `
				INSERT INTO inv_entries (
					line_id, record_id, seq, action, delta, new_quantity, note, actor_id
				)
				VALUES ($1, $2, 1, 'initial_stock', $3, $3, 'seeded opening stock', 'seed')
			`, id.New(), recID, quantity)
			if err != nil {
				log.Warnw("failed to seed opening ledger entry", "record_id", recID, "error", err)
			}
		}
	}

	log.Info("demo data seeded successfully")
	return nil
}
