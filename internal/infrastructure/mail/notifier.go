// Package mail sends low-stock alert emails over SMTP. Delivery is
// fire-and-forget after commit: failures are logged, never propagated
// into the ledger.
package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"tradepost/internal/core/id"
	"tradepost/internal/domain/catalogs/location"
	"tradepost/internal/domain/catalogs/product"
	"tradepost/internal/domain/inventory"
	"tradepost/pkg/logger"
)

// sendTimeout bounds one SMTP delivery attempt.
const sendTimeout = 15 * time.Second

// Config holds SMTP settings and the alert recipient list.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// Recipients receive every low-stock alert
	Recipients []string
}

// Enabled reports whether the mailer is configured.
func (c Config) Enabled() bool {
	return c.Host != "" && len(c.Recipients) > 0
}

// ProductLookup resolves product names for the alert body.
type ProductLookup interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
}

// LocationLookup resolves location names for the alert body.
type LocationLookup interface {
	GetByID(ctx context.Context, locationID id.ID) (*location.Location, error)
}

// LowStockMailer implements inventory.LowStockNotifier over SMTP.
type LowStockMailer struct {
	dialer     *gomail.Dialer
	from       string
	recipients []string
	products   ProductLookup
	locations  LocationLookup
}

var _ inventory.LowStockNotifier = (*LowStockMailer)(nil)

// NewLowStockMailer creates the mailer.
func NewLowStockMailer(cfg Config, products ProductLookup, locations LocationLookup) *LowStockMailer {
	return &LowStockMailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.From,
		recipients: cfg.Recipients,
		products:   products,
		locations:  locations,
	}
}

// NotifyLowStock sends the alert in the background. The caller's
// transaction has already committed; the email outcome never affects it.
func (m *LowStockMailer) NotifyLowStock(ctx context.Context, record *inventory.Record) {
	snapshot := *record
	go m.send(&snapshot)
}

func (m *LowStockMailer) send(record *inventory.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	productName := record.ProductID.String()
	if p, err := m.products.GetByID(ctx, record.ProductID); err == nil {
		productName = p.Name
	}
	locationName := record.LocationID.String()
	if l, err := m.locations.GetByID(ctx, record.LocationID); err == nil {
		locationName = l.Name
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.recipients...)
	msg.SetHeader("Subject", fmt.Sprintf("Low stock: %s at %s", productName, locationName))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Stock for %q at %q has dropped to %d (alert threshold %d).\n\n"+
			"Record: %s\nProduct: %s\nLocation: %s\n",
		productName, locationName, record.Quantity, record.EffectiveNotifyAt(),
		record.ID, record.ProductID, record.LocationID))

	if err := m.dialer.DialAndSend(msg); err != nil {
		logger.Warn(ctx, "low-stock email failed",
			"record_id", record.ID,
			"product_id", record.ProductID,
			"error", err)
		return
	}

	logger.Info(ctx, "low-stock email sent",
		"record_id", record.ID,
		"quantity", record.Quantity)
}
