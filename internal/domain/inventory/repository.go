package inventory

import (
	"context"
	"time"

	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
)

// Repository defines storage operations for inventory records and their
// audit log. Mutating methods are expected to run inside a transaction
// opened by the service layer.
type Repository interface {
	// Create inserts a new record. A concurrent first-insert for the same
	// (product, location) surfaces as a duplicate error; callers retry by
	// re-reading.
	Create(ctx context.Context, record *Record) error

	// GetByID retrieves a record by ID.
	GetByID(ctx context.Context, recordID id.ID) (*Record, error)

	// GetByProductLocation retrieves the record for (product, location).
	GetByProductLocation(ctx context.Context, productID, locationID id.ID) (*Record, error)

	// GetForUpdate retrieves a record with a row lock.
	GetForUpdate(ctx context.Context, recordID id.ID) (*Record, error)

	// GetForUpdateByProductLocation locks the record for (product, location).
	GetForUpdateByProductLocation(ctx context.Context, productID, locationID id.ID) (*Record, error)

	// UpdateQuantity writes the new quantity for a record.
	UpdateQuantity(ctx context.Context, recordID id.ID, quantity int) error

	// UpdateThresholds writes min_stock / notify_at.
	UpdateThresholds(ctx context.Context, recordID id.ID, minStock, notifyAt int) error

	// MarkNotified records when a low-stock alert was last sent.
	MarkNotified(ctx context.Context, recordID id.ID, at time.Time) error

	// AppendEntry appends an audit entry, assigning the next per-record Seq.
	AppendEntry(ctx context.Context, entry *entity.StockEntry) error

	// ListEntries returns a record's audit log, oldest first.
	ListEntries(ctx context.Context, recordID id.ID, limit, offset int) ([]entity.StockEntry, error)

	// List retrieves records matching the filter.
	List(ctx context.Context, filter Filter) (ListResult, error)
}

// Filter for listing inventory records.
type Filter struct {
	ProductID  *id.ID
	LocationID *id.ID

	// LocationIDs restricts results to the caller's accessible locations.
	// Empty means unrestricted.
	LocationIDs []string

	// LowStockOnly keeps records at or below their alert threshold
	LowStockOnly bool

	Limit  int
	Offset int
}

// ListResult contains paginated inventory records.
type ListResult struct {
	Items      []*Record `json:"items"`
	TotalCount int64     `json:"totalCount"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}
