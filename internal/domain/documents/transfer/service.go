package transfer

import (
	"context"
	"fmt"
	"time"

	"tradepost/internal/core/apperror"
	appctx "tradepost/internal/core/context"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/core/tx"
	"tradepost/internal/domain"
	"tradepost/internal/domain/catalogs/location"
	"tradepost/internal/domain/catalogs/product"
	"tradepost/internal/domain/events"
	"tradepost/internal/domain/inventory"
	"tradepost/pkg/logger"
)

// numberAttempts bounds retries when a generated transfer number collides.
const numberAttempts = 5

// ProductLookup resolves product references during validation.
type ProductLookup interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
}

// LocationLookup resolves location references during validation.
type LocationLookup interface {
	GetByID(ctx context.Context, locationID id.ID) (*location.Location, error)
}

// Service is the transfer state machine. Transitions re-read the transfer
// under lock and move stock through the record keeper in the same
// serializable transaction.
type Service struct {
	repo      Repository
	records   *inventory.Service
	products  ProductLookup
	locations LocationLookup
	txManager tx.SerializableManager
	publisher events.Publisher
}

// NewService creates the transfer service.
func NewService(
	repo Repository,
	records *inventory.Service,
	products ProductLookup,
	locations LocationLookup,
	txManager tx.SerializableManager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		records:   records,
		products:  products,
		locations: locations,
		txManager: txManager,
		publisher: publisher,
	}
}

// Create opens a pending transfer. No stock moves until Ship.
func (s *Service) Create(ctx context.Context, input CreateInput) (*StockTransfer, error) {
	actorID := appctx.GetUserID(ctx)
	t := NewStockTransfer(input.ProductID, input.FromLocationID, input.ToLocationID, input.Quantity, actorID)
	t.Notes = input.Notes
	t.CreatedBy = actorID

	if err := t.Validate(ctx); err != nil {
		return nil, err
	}

	if !appctx.HasLocationAccess(ctx, t.FromLocationID.String()) &&
		!appctx.HasLocationAccess(ctx, t.ToLocationID.String()) {
		return nil, apperror.NewForbidden("no access to either transfer location")
	}

	if err := s.checkReferences(ctx, t); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.createWithNumber(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer created",
		"transfer_id", t.ID,
		"number", t.Number,
		"product_id", t.ProductID,
		"from", t.FromLocationID,
		"to", t.ToLocationID,
		"quantity", t.Quantity)

	return t, nil
}

// createWithNumber inserts the transfer, regenerating the number on the
// rare collision.
func (s *Service) createWithNumber(ctx context.Context, t *StockTransfer) error {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := NewTransferNumber()
		if err != nil {
			return err
		}
		t.Number = number

		err = s.repo.Create(ctx, t)
		if err == nil {
			return nil
		}
		if !apperror.IsDuplicate(err) {
			return err
		}
	}
	return apperror.NewInternal(fmt.Errorf("transfer number space exhausted after %d attempts", numberAttempts))
}

// checkReferences verifies the product and both locations exist and are
// usable in new documents.
func (s *Service) checkReferences(ctx context.Context, t *StockTransfer) error {
	p, err := s.products.GetByID(ctx, t.ProductID)
	if err != nil {
		return err
	}
	if !p.IsActive || p.DeletionMark {
		return apperror.NewValidation("product is not active").
			WithDetail("field", "productId").
			WithDetail("productId", t.ProductID.String())
	}

	for _, locID := range []id.ID{t.FromLocationID, t.ToLocationID} {
		loc, err := s.locations.GetByID(ctx, locID)
		if err != nil {
			return err
		}
		if !loc.IsActive || loc.DeletionMark {
			return apperror.NewValidation("location is not active").
				WithDetail("locationId", locID.String())
		}
	}
	return nil
}

// Ship moves a pending transfer to shipped, decrementing source stock.
func (s *Service) Ship(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	actorID := appctx.GetUserID(ctx)

	var result *StockTransfer
	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if !t.Status.CanTransition(StatusShipped) {
			return apperror.NewIllegalTransition("transfer", string(t.Status), string(StatusShipped))
		}
		if !appctx.HasLocationAccess(ctx, t.FromLocationID.String()) {
			return apperror.NewForbidden("no access to the source location")
		}

		record, err := s.records.LockByProductLocation(ctx, t.ProductID, t.FromLocationID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewInsufficientStock(t.ProductID.String(), t.Quantity, 0)
			}
			return err
		}
		if record.Quantity < t.Quantity {
			return apperror.NewInsufficientStock(t.ProductID.String(), t.Quantity, record.Quantity)
		}

		note := fmt.Sprintf("Shipped on transfer %s", t.Number)
		if _, err := s.records.ApplyDelta(ctx, record.ID, -t.Quantity,
			entity.ActionTransferOut, note, entity.RefTransfer(t.ID), actorID); err != nil {
			return err
		}

		now := time.Now().UTC()
		t.Status = StatusShipped
		t.ShippedBy = &actorID
		t.ShippedAt = &now
		t.UpdatedBy = actorID
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}

		result = t
		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "transfer",
			AggregateID:   t.ID,
			Type:          events.TypeTransferShipped,
			Payload:       t,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer shipped", "transfer_id", result.ID, "number", result.Number)
	return result, nil
}

// Receive moves a shipped transfer to received, incrementing destination
// stock. The destination record is created on first introduction.
func (s *Service) Receive(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	actorID := appctx.GetUserID(ctx)

	var result *StockTransfer
	var destination *inventory.Record
	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if !t.Status.CanTransition(StatusReceived) {
			return apperror.NewIllegalTransition("transfer", string(t.Status), string(StatusReceived))
		}
		if !appctx.HasLocationAccess(ctx, t.ToLocationID.String()) {
			return apperror.NewForbidden("no access to the destination location")
		}

		record, err := s.records.UpsertOnIntroduction(ctx, t.ProductID, t.ToLocationID, actorID)
		if err != nil {
			return err
		}

		note := fmt.Sprintf("Received on transfer %s", t.Number)
		updated, err := s.records.ApplyDelta(ctx, record.ID, t.Quantity,
			entity.ActionTransferIn, note, entity.RefTransfer(t.ID), actorID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		t.Status = StatusReceived
		t.ReceivedBy = &actorID
		t.ReceivedAt = &now
		t.UpdatedBy = actorID
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}

		result = t
		destination = updated
		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "transfer",
			AggregateID:   t.ID,
			Type:          events.TypeTransferReceived,
			Payload:       t,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer received", "transfer_id", result.ID, "number", result.Number)
	s.records.CheckLowStock(ctx, destination)
	return result, nil
}

// Cancel terminates a pending or shipped transfer. Cancelling after
// shipment compensates the source with a reversing ledger entry.
func (s *Service) Cancel(ctx context.Context, transferID id.ID, reason string) (*StockTransfer, error) {
	actorID := appctx.GetUserID(ctx)

	var result *StockTransfer
	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if !t.Status.CanTransition(StatusCancelled) {
			return apperror.NewIllegalTransition("transfer", string(t.Status), string(StatusCancelled))
		}
		if !appctx.HasLocationAccess(ctx, t.FromLocationID.String()) &&
			!appctx.HasLocationAccess(ctx, t.ToLocationID.String()) {
			return apperror.NewForbidden("no access to either transfer location")
		}

		if t.Status == StatusShipped {
			record, err := s.records.UpsertOnIntroduction(ctx, t.ProductID, t.FromLocationID, actorID)
			if err != nil {
				return err
			}
			note := fmt.Sprintf("Reversed shipment on cancelled transfer %s", t.Number)
			if _, err := s.records.ApplyDelta(ctx, record.ID, t.Quantity,
				entity.ActionTransferOutReversed, note, entity.RefTransfer(t.ID), actorID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		t.Status = StatusCancelled
		t.CancelledBy = &actorID
		t.CancelledAt = &now
		if reason != "" {
			t.CancellationReason = &reason
		}
		t.UpdatedBy = actorID
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}

		result = t
		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "transfer",
			AggregateID:   t.ID,
			Type:          events.TypeTransferCancelled,
			Payload:       t,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer cancelled", "transfer_id", result.ID, "number", result.Number)
	return result, nil
}

// GetByID retrieves one transfer, requiring access to either endpoint.
func (s *Service) GetByID(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	t, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !appctx.HasLocationAccess(ctx, t.FromLocationID.String()) &&
		!appctx.HasLocationAccess(ctx, t.ToLocationID.String()) {
		return nil, apperror.NewForbidden("no access to either transfer location")
	}
	return t, nil
}

// List retrieves transfers with filters.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockTransfer], error) {
	if filter.LocationID != nil && !appctx.HasLocationAccess(ctx, filter.LocationID.String()) {
		return domain.ListResult[*StockTransfer]{}, apperror.NewForbidden("no access to this location")
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
