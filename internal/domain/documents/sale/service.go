package sale

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
	"tradepost/internal/core/types"
	"tradepost/internal/domain"
	"tradepost/internal/domain/catalogs/location"
	"tradepost/internal/domain/catalogs/product"
	"tradepost/internal/domain/events"
	"tradepost/internal/domain/inventory"
	"tradepost/pkg/logger"
)

// ProductLookup resolves product references during validation.
type ProductLookup interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
}

// LocationLookup resolves the sale location.
type LocationLookup interface {
	GetByID(ctx context.Context, locationID id.ID) (*location.Location, error)
}

// Service is the POS sale commit. Completing a sale deducts stock line by
// line and posts one Income record, all inside the transaction that writes
// the sale itself.
type Service struct {
	repo      Repository
	incomes   IncomeRepository
	records   *inventory.Service
	products  ProductLookup
	locations LocationLookup
	numerator numerator.Generator
	txManager tx.SerializableManager
	publisher events.Publisher
}

// NewService creates the sale service.
func NewService(
	repo Repository,
	incomes IncomeRepository,
	records *inventory.Service,
	products ProductLookup,
	locations LocationLookup,
	gen numerator.Generator,
	txManager tx.SerializableManager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		incomes:   incomes,
		records:   records,
		products:  products,
		locations: locations,
		numerator: gen,
		txManager: txManager,
		publisher: publisher,
	}
}

// Create registers a sale. When the resulting status is completed the
// stock deduction and income posting happen in the same transaction as
// the insert.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Sale, error) {
	actorID := appctx.GetUserID(ctx)

	sl := NewSale(input.LocationID)
	sl.CustomerName = input.CustomerName
	sl.TaxPct = types.NewPercent(input.TaxPct)
	sl.DiscountPct = types.NewPercent(input.DiscountPct)
	sl.CreatedBy = actorID
	if input.SaleDate != nil {
		sl.Date = *input.SaleDate
	}
	if input.PaymentMethod != "" {
		sl.PaymentMethod = input.PaymentMethod
	}
	if input.Status != "" {
		if input.Status == StatusCancelled {
			return nil, apperror.NewValidation("sales cannot be created as cancelled").
				WithDetail("field", "status")
		}
		sl.Status = input.Status
	}

	for _, item := range input.Items {
		sl.Lines = append(sl.Lines, SaleLine{
			LineID:    id.New(),
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: types.NewMoney(item.UnitPrice),
			Discount:  types.NewPercent(item.Discount),
		})
	}
	sl.RecalculateTotals()

	if err := sl.Validate(ctx); err != nil {
		return nil, err
	}
	if !appctx.HasLocationAccess(ctx, sl.LocationID.String()) {
		return nil, apperror.NewForbidden("no access to this location")
	}
	if err := s.checkLocation(ctx, sl.LocationID); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.SaleConfig(), nil, sl.Date)
	if err != nil {
		return nil, fmt.Errorf("generate sale number: %w", err)
	}
	sl.Number = number

	var touched []*inventory.Record
	err = s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		locked, err := s.precheck(ctx, sl)
		if err != nil {
			return err
		}

		if sl.IsCompleted() {
			now := time.Now().UTC()
			sl.CompletedAt = &now
		}
		if err := s.repo.Create(ctx, sl); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveLines(ctx, sl.ID, sl.Lines); err != nil {
			return err
		}

		if sl.IsCompleted() {
			touched, err = s.commit(ctx, sl, locked, actorID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale created",
		"sale_id", sl.ID,
		"number", sl.Number,
		"location_id", sl.LocationID,
		"status", sl.Status,
		"total", sl.Total)

	for _, record := range touched {
		s.records.CheckLowStock(ctx, record)
	}
	return sl, nil
}

// checkLocation verifies the sale location exists and is active.
func (s *Service) checkLocation(ctx context.Context, locationID id.ID) error {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return err
	}
	if !loc.IsActive || loc.DeletionMark {
		return apperror.NewValidation("location is not active").
			WithDetail("locationId", locationID.String())
	}
	return nil
}

// precheck validates every line against current stock without mutating
// anything: product exists, an inventory record exists at the sale
// location, and its quantity covers the line. Violations are reported
// together. The locked records are returned for the commit step.
func (s *Service) precheck(ctx context.Context, sl *Sale) ([]*inventory.Record, error) {
	var violations []string
	locked := make([]*inventory.Record, len(sl.Lines))

	for i := range sl.Lines {
		line := &sl.Lines[i]
		if _, err := s.products.GetByID(ctx, line.ProductID); err != nil {
			if apperror.IsNotFound(err) {
				violations = append(violations,
					fmt.Sprintf("line %d: product does not exist", i+1))
				continue
			}
			return nil, err
		}

		record, err := s.records.LockByProductLocation(ctx, line.ProductID, sl.LocationID)
		if err != nil {
			if apperror.IsNotFound(err) {
				violations = append(violations,
					fmt.Sprintf("line %d: no inventory at this location", i+1))
				continue
			}
			return nil, err
		}
		if record.Quantity < line.Quantity {
			violations = append(violations,
				fmt.Sprintf("line %d: insufficient stock (requested %d, available %d)",
					i+1, line.Quantity, record.Quantity))
			continue
		}
		locked[i] = record
	}

	if len(violations) > 0 {
		return nil, apperror.NewValidation("sale cannot be committed").
			WithDetail("violations", violations)
	}
	return locked, nil
}

// commit deducts stock per line and posts the income record. Duplicate
// product lines are safe: each delta re-checks the running quantity, so
// a combined overdraw still aborts the transaction.
func (s *Service) commit(ctx context.Context, sl *Sale, locked []*inventory.Record, actorID string) ([]*inventory.Record, error) {
	note := fmt.Sprintf("Sold on sale %s", sl.Number)
	touched := make([]*inventory.Record, 0, len(sl.Lines))
	for i := range sl.Lines {
		updated, err := s.records.ApplyDelta(ctx, locked[i].ID, -sl.Lines[i].Quantity,
			entity.ActionSale, note, entity.RefSale(sl.ID), actorID)
		if err != nil {
			return nil, err
		}
		touched = append(touched, updated)
	}

	if err := s.incomes.Create(ctx, NewIncome(sl, actorID)); err != nil {
		return nil, fmt.Errorf("post income: %w", err)
	}

	return touched, s.publisher.Publish(ctx, events.Event{
		AggregateType: "sale",
		AggregateID:   sl.ID,
		Type:          events.TypeSaleCompleted,
		Room:          events.LocationRoom(sl.LocationID.String()),
		Payload:       sl,
	})
}

// UpdateStatus moves a pending sale to completed or cancelled. Completing
// runs the same precheck and commit as a completed create.
func (s *Service) UpdateStatus(ctx context.Context, saleID id.ID, target Status) (*Sale, error) {
	if !ValidStatus(target) {
		return nil, apperror.NewValidation("unknown sale status").
			WithDetail("field", "status").
			WithDetail("value", string(target))
	}
	actorID := appctx.GetUserID(ctx)

	var result *Sale
	var touched []*inventory.Record
	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		sl, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		lines, err := s.repo.GetLines(ctx, saleID)
		if err != nil {
			return err
		}
		sl.Lines = lines

		if !sl.Status.CanTransition(target) {
			return apperror.NewIllegalTransition("sale", string(sl.Status), string(target))
		}
		if !appctx.HasLocationAccess(ctx, sl.LocationID.String()) {
			return apperror.NewForbidden("no access to this location")
		}

		sl.Status = target
		sl.UpdatedBy = actorID
		if target == StatusCompleted {
			locked, err := s.precheck(ctx, sl)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			sl.CompletedAt = &now
			if err := s.repo.Update(ctx, sl); err != nil {
				return err
			}
			touched, err = s.commit(ctx, sl, locked, actorID)
			result = sl
			return err
		}

		if err := s.repo.Update(ctx, sl); err != nil {
			return err
		}
		result = sl
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale status changed",
		"sale_id", result.ID,
		"number", result.Number,
		"status", result.Status)

	for _, record := range touched {
		s.records.CheckLowStock(ctx, record)
	}
	return result, nil
}

// GetByID retrieves a sale with lines, requiring location access.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	sl, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !appctx.HasLocationAccess(ctx, sl.LocationID.String()) {
		return nil, apperror.NewForbidden("no access to this location")
	}
	lines, err := s.repo.GetLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	sl.Lines = lines
	return sl, nil
}

// List retrieves sales with filters.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	if filter.LocationID != nil && !appctx.HasLocationAccess(ctx, filter.LocationID.String()) {
		return domain.ListResult[*Sale]{}, apperror.NewForbidden("no access to this location")
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// Stats aggregates completed sales.
func (s *Service) Stats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	if filter.LocationID != nil && !appctx.HasLocationAccess(ctx, filter.LocationID.String()) {
		return nil, apperror.NewForbidden("no access to this location")
	}
	return s.repo.Stats(ctx, filter)
}
