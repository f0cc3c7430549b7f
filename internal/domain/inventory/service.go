package inventory

import (
	"context"
	"fmt"
	"time"

	"tradepost/internal/core/apperror"
	appctx "tradepost/internal/core/context"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/core/tx"
	"tradepost/internal/domain/events"
	"tradepost/pkg/logger"
)

// notifyCooldown throttles repeat low-stock alerts per record.
const notifyCooldown = 24 * time.Hour

// LowStockNotifier delivers low-stock alerts. Delivery is fire-and-forget
// after commit; failures are logged, never propagated into the ledger.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, record *Record)
}

// Service is the inventory record keeper.
type Service struct {
	repo      Repository
	txManager tx.SerializableManager
	publisher events.Publisher
	notifier  LowStockNotifier
}

// NewService creates the record keeper.
func NewService(repo Repository, txManager tx.SerializableManager, publisher events.Publisher, notifier LowStockNotifier) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		publisher: publisher,
		notifier:  notifier,
	}
}

// CreateInput for introducing a product at a location.
type CreateInput struct {
	ProductID  id.ID
	LocationID id.ID

	// InitialQuantity seeds the record through an initial_stock entry
	InitialQuantity int

	MinStock int
	NotifyAt int
}

// Create introduces a product at a location. The record starts at zero and
// any initial quantity flows through the ledger as an initial_stock entry,
// so the audit log fully accounts for the current quantity.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Record, error) {
	if input.InitialQuantity < 0 {
		return nil, apperror.NewValidation("initial quantity cannot be negative").
			WithDetail("field", "quantity")
	}
	if !appctx.HasLocationAccess(ctx, input.LocationID.String()) {
		return nil, apperror.NewForbidden("no access to this location")
	}

	actorID := appctx.GetUserID(ctx)

	var result *Record
	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByProductLocation(ctx, input.ProductID, input.LocationID)
		if err == nil && existing != nil {
			return apperror.NewDuplicate("inventory record", "product and location",
				fmt.Sprintf("%s@%s", input.ProductID, input.LocationID))
		}
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}

		record := NewRecord(input.ProductID, input.LocationID, actorID)
		record.MinStock = input.MinStock
		record.NotifyAt = input.NotifyAt
		if err := record.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, record); err != nil {
			return err
		}

		if input.InitialQuantity > 0 {
			record, err = s.applyDeltaLocked(ctx, record.ID, input.InitialQuantity,
				entity.ActionInitialStock, "Initial stock on record creation", entity.EntryRefs{}, actorID)
			if err != nil {
				return err
			}
		}

		result = record
		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "inventory",
			AggregateID:   record.ID,
			Type:          events.TypeInventoryUpdate,
			Payload:       record,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory record created",
		"record_id", result.ID,
		"product_id", input.ProductID,
		"location_id", input.LocationID,
		"quantity", result.Quantity)

	return result, nil
}

// UpsertOnIntroduction returns the record for (product, location), creating
// an empty one if absent. Concurrent first-inserts are resolved by retrying
// the read after a duplicate error. Must run inside a transaction.
func (s *Service) UpsertOnIntroduction(ctx context.Context, productID, locationID id.ID, actorID string) (*Record, error) {
	record, err := s.repo.GetForUpdateByProductLocation(ctx, productID, locationID)
	if err == nil {
		return record, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	record = NewRecord(productID, locationID, actorID)
	if err := s.repo.Create(ctx, record); err != nil {
		if apperror.IsDuplicate(err) {
			// Lost the first-insert race; the winner's row is authoritative.
			return s.repo.GetForUpdateByProductLocation(ctx, productID, locationID)
		}
		return nil, err
	}

	return record, nil
}

// LockByProductLocation retrieves the record for (product, location) with
// a row lock. Must run inside a transaction; returns NotFound if the pair
// was never introduced.
func (s *Service) LockByProductLocation(ctx context.Context, productID, locationID id.ID) (*Record, error) {
	return s.repo.GetForUpdateByProductLocation(ctx, productID, locationID)
}

// CurrentQuantity returns the quantity for (product, location) and whether
// a record exists.
func (s *Service) CurrentQuantity(ctx context.Context, productID, locationID id.ID) (int, bool, error) {
	record, err := s.repo.GetByProductLocation(ctx, productID, locationID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return record.Quantity, true, nil
}

// ApplyDelta is the single mutation primitive for stock counts. It must be
// called inside a transaction opened by the caller: it re-reads the record
// under lock, rejects negative outcomes, and writes the new quantity plus
// an audit entry atomically with the caller's other writes.
func (s *Service) ApplyDelta(ctx context.Context, recordID id.ID, delta int, action entity.EntryAction, note string, refs entity.EntryRefs, actorID string) (*Record, error) {
	if delta == 0 {
		return nil, apperror.NewValidation("delta cannot be zero").WithDetail("field", "delta")
	}
	return s.applyDeltaLocked(ctx, recordID, delta, action, note, refs, actorID)
}

func (s *Service) applyDeltaLocked(ctx context.Context, recordID id.ID, delta int, action entity.EntryAction, note string, refs entity.EntryRefs, actorID string) (*Record, error) {
	record, err := s.repo.GetForUpdate(ctx, recordID)
	if err != nil {
		return nil, err
	}

	newQuantity := record.Quantity + delta
	if newQuantity < 0 {
		return nil, apperror.NewNegativeStock(
			record.ProductID.String(), record.LocationID.String(),
			record.Quantity, delta)
	}

	if err := s.repo.UpdateQuantity(ctx, record.ID, newQuantity); err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}

	entry := entity.NewStockEntry(record.ID, action, delta, newQuantity, note, actorID, refs)
	if err := s.repo.AppendEntry(ctx, &entry); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	record.Quantity = newQuantity
	record.UpdatedAt = entry.CreatedAt
	return record, nil
}

// GetByID retrieves a record, enforcing location access.
func (s *Service) GetByID(ctx context.Context, recordID id.ID) (*Record, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !appctx.HasLocationAccess(ctx, record.LocationID.String()) {
		return nil, apperror.NewForbidden("no access to this location")
	}
	return record, nil
}

// List retrieves records restricted to the caller's accessible locations.
func (s *Service) List(ctx context.Context, filter Filter) (ListResult, error) {
	user := appctx.GetUser(ctx)
	if user != nil && !user.IsAdmin && len(user.LocationIDs) > 0 {
		filter.LocationIDs = user.LocationIDs
	}

	if filter.LocationID != nil && !appctx.HasLocationAccess(ctx, filter.LocationID.String()) {
		return ListResult{}, apperror.NewForbidden("no access to this location")
	}

	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	return s.repo.List(ctx, filter)
}

// History returns a record's audit log, oldest first.
func (s *Service) History(ctx context.Context, recordID id.ID, limit, offset int) ([]entity.StockEntry, error) {
	if _, err := s.GetByID(ctx, recordID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListEntries(ctx, recordID, limit, offset)
}

// SetThresholds updates min_stock and notify_at for a record.
func (s *Service) SetThresholds(ctx context.Context, recordID id.ID, minStock, notifyAt int) (*Record, error) {
	if minStock < 0 || notifyAt < 0 {
		return nil, apperror.NewValidation("thresholds cannot be negative")
	}

	record, err := s.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateThresholds(ctx, recordID, minStock, notifyAt); err != nil {
		return nil, err
	}

	record.MinStock = minStock
	record.NotifyAt = notifyAt
	return record, nil
}

// CheckLowStock evaluates a record after a committed mutation and fires a
// throttled alert when the quantity sits at or below the notify threshold.
// Called outside the ledger transaction; failures never affect stock.
func (s *Service) CheckLowStock(ctx context.Context, record *Record) {
	if s.notifier == nil || record == nil || !record.IsLowStock() {
		return
	}

	if record.LastNotified != nil && time.Since(*record.LastNotified) < notifyCooldown {
		return
	}

	now := time.Now().UTC()
	if err := s.repo.MarkNotified(ctx, record.ID, now); err != nil {
		logger.Warn(ctx, "failed to mark low-stock notification",
			"record_id", record.ID, "error", err)
		return
	}
	record.LastNotified = &now

	s.notifier.NotifyLowStock(ctx, record)
}
