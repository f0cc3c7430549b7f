package adjustment

import (
	"context"
	"fmt"
	"time"

	"tradepost/internal/core/apperror"
	appctx "tradepost/internal/core/context"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/core/numerator"
	"tradepost/internal/core/tx"
	"tradepost/internal/domain"
	"tradepost/internal/domain/events"
	"tradepost/internal/domain/inventory"
	"tradepost/pkg/logger"
)

// Service is the stock adjustment engine. Every user-initiated stock delta
// flows through it into the record keeper.
type Service struct {
	repo      Repository
	records   *inventory.Service
	numerator numerator.Generator
	txManager tx.SerializableManager
	publisher events.Publisher
}

// NewService creates the adjustment engine.
func NewService(
	repo Repository,
	records *inventory.Service,
	gen numerator.Generator,
	txManager tx.SerializableManager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		records:   records,
		numerator: gen,
		txManager: txManager,
		publisher: publisher,
	}
}

// CreateBatch applies a batch of adjustments at one location. The whole
// batch succeeds or fails in a single serializable transaction; each item
// moves stock through the record keeper and persists a StockAdjustment
// document snapshotting the quantity transition.
func (s *Service) CreateBatch(ctx context.Context, input BatchInput) ([]*StockAdjustment, error) {
	if id.IsNil(input.LocationID) {
		return nil, apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if len(input.Items) == 0 {
		return nil, apperror.NewValidation("at least one adjustment is required").
			WithDetail("field", "adjustments")
	}
	if !appctx.HasLocationAccess(ctx, input.LocationID.String()) {
		return nil, apperror.NewForbidden("no access to this location")
	}

	// Derive every delta up front so validation fails before any mutation.
	deltas := make([]int, len(input.Items))
	for i, item := range input.Items {
		if id.IsNil(item.ProductID) {
			return nil, apperror.NewValidation("product is required").
				WithDetail("field", "adjustments").
				WithDetail("index", i)
		}
		if !ValidType(item.Type) {
			return nil, apperror.NewValidation("unknown adjustment type").
				WithDetail("field", "adjustments").
				WithDetail("index", i).
				WithDetail("value", string(item.Type))
		}
		delta, err := SignedDelta(item.Type, item.Quantity, item.SignedQuantity)
		if err != nil {
			return nil, err
		}
		deltas[i] = delta
	}

	actorID := appctx.GetUserID(ctx)
	created := make([]*StockAdjustment, 0, len(input.Items))
	var affected []*inventory.Record

	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		created = created[:0]
		affected = affected[:0]

		for i, item := range input.Items {
			record, err := s.resolveRecord(ctx, item, input.LocationID, actorID)
			if err != nil {
				return err
			}

			number, err := s.numerator.GetNextNumber(ctx, numerator.AdjustmentConfig(), nil, time.Now())
			if err != nil {
				return fmt.Errorf("generate adjustment number: %w", err)
			}

			adj := NewStockAdjustment(record.ID, item.ProductID, input.LocationID, item.Type)
			adj.Number = number
			adj.QuantityAdjusted = abs(deltas[i])
			adj.PreviousQuantity = record.Quantity
			adj.Reason = item.Reason
			adj.ReferenceNumber = input.ReferenceNumber
			adj.CreatedBy = actorID

			updated, err := s.records.ApplyDelta(ctx, record.ID, deltas[i],
				entity.ActionAdjustment, item.Reason, entity.RefAdjustment(adj.ID), actorID)
			if err != nil {
				return err
			}

			adj.NewQuantity = updated.Quantity
			if err := adj.Validate(ctx); err != nil {
				return err
			}
			if err := s.repo.Create(ctx, adj); err != nil {
				return fmt.Errorf("create adjustment: %w", err)
			}

			created = append(created, adj)
			affected = append(affected, updated)
		}

		batch := []events.Event{
			{
				AggregateType: "adjustment",
				AggregateID:   created[0].ID,
				Type:          events.TypeAdjustmentsCreated,
				Payload:       created,
			},
			{
				AggregateType: "inventory",
				AggregateID:   input.LocationID,
				Type:          events.TypeInventoryAdjusted,
				Room:          events.LocationRoom(input.LocationID.String()),
				Payload:       affected,
			},
		}
		return s.publisher.PublishBatch(ctx, batch)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustments created",
		"location_id", input.LocationID,
		"count", len(created),
		"first_number", created[0].Number)

	for _, record := range affected {
		s.records.CheckLowStock(ctx, record)
	}

	return created, nil
}

// resolveRecord finds the inventory record for an item, creating it only
// for Initial Stock adjustments.
func (s *Service) resolveRecord(ctx context.Context, item BatchItem, locationID id.ID, actorID string) (*inventory.Record, error) {
	if item.Type == TypeInitialStock {
		return s.records.UpsertOnIntroduction(ctx, item.ProductID, locationID, actorID)
	}

	record, err := s.records.LockByProductLocation(ctx, item.ProductID, locationID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewInventoryMissing(item.ProductID.String(), locationID.String())
		}
		return nil, err
	}
	return record, nil
}

// AdjustSingle applies one adjustment against a known inventory record.
// Backs the single-record PATCH endpoint by delegating to CreateBatch.
func (s *Service) AdjustSingle(ctx context.Context, recordID id.ID, adjType AdjustmentType, quantity, signedQuantity int, reason string) (*StockAdjustment, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	created, err := s.CreateBatch(ctx, BatchInput{
		LocationID: record.LocationID,
		Items: []BatchItem{{
			ProductID:      record.ProductID,
			Type:           adjType,
			Quantity:       quantity,
			SignedQuantity: signedQuantity,
			Reason:         reason,
		}},
	})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// GetByID retrieves one adjustment, enforcing location access.
func (s *Service) GetByID(ctx context.Context, adjID id.ID) (*StockAdjustment, error) {
	adj, err := s.repo.GetByID(ctx, adjID)
	if err != nil {
		return nil, err
	}
	if !appctx.HasLocationAccess(ctx, adj.LocationID.String()) {
		return nil, apperror.NewForbidden("no access to this location")
	}
	return adj, nil
}

// Update edits the only mutable fields: reason and reference number.
// Quantity, type, timestamps and actor are immutable.
func (s *Service) Update(ctx context.Context, adjID id.ID, reason, referenceNumber string) (*StockAdjustment, error) {
	adj, err := s.GetByID(ctx, adjID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateEditable(ctx, adjID, reason, referenceNumber); err != nil {
		return nil, err
	}

	adj.Reason = reason
	adj.ReferenceNumber = referenceNumber
	return adj, nil
}

// Delete always refuses: adjustments are audit history. Mistakes are fixed
// by issuing a new reversing adjustment.
func (s *Service) Delete(ctx context.Context, adjID id.ID) error {
	return apperror.NewForbidden(
		"stock adjustments cannot be deleted; create a reversing adjustment instead")
}

// List retrieves adjustment history with filters.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockAdjustment], error) {
	if filter.LocationID != nil && !appctx.HasLocationAccess(ctx, filter.LocationID.String()) {
		return domain.ListResult[*StockAdjustment]{}, apperror.NewForbidden("no access to this location")
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
